package healthcheck

import (
	"github.com/x-xyz/goexchange/base/ctx"
)

// HealthCheckRepo probes the backing stores
type HealthCheckRepo interface {
	PingDB(context ctx.Ctx) error
}

// HealthCheckUsecase represent the usecase of the health check
type HealthCheckUsecase interface {
	Check(context ctx.Ctx) error
}
