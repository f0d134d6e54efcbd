package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/viper"

	"github.com/go-playground/validator/v10"
	bCtx "github.com/x-xyz/goexchange/base/ctx"
	"github.com/x-xyz/goexchange/base/database/mongoclient"
	"github.com/x-xyz/goexchange/base/log"
	bValidator "github.com/x-xyz/goexchange/base/validator"
	"github.com/x-xyz/goexchange/domain"
	"github.com/x-xyz/goexchange/domain/exchange"
	"github.com/x-xyz/goexchange/domain/order"
	"github.com/x-xyz/goexchange/domain/registry"
	mmiddleware "github.com/x-xyz/goexchange/middleware"
	"github.com/x-xyz/goexchange/service/query"
	asset_repository "github.com/x-xyz/goexchange/stores/asset/repository"
	exchange_delivery "github.com/x-xyz/goexchange/stores/exchange/delivery/http"
	exchange_repository "github.com/x-xyz/goexchange/stores/exchange/repository"
	exchange_usecase "github.com/x-xyz/goexchange/stores/exchange/usecase"
	hc_delivery "github.com/x-xyz/goexchange/stores/healthcheck/delivery/http"
	hc_repo "github.com/x-xyz/goexchange/stores/healthcheck/repository"
	hc_usecase "github.com/x-xyz/goexchange/stores/healthcheck/usecase"
	order_delivery "github.com/x-xyz/goexchange/stores/order/delivery/http"
	order_repository "github.com/x-xyz/goexchange/stores/order/repository"
	order_usecase "github.com/x-xyz/goexchange/stores/order/usecase"
	registry_delivery "github.com/x-xyz/goexchange/stores/registry/delivery/http"
	registry_repository "github.com/x-xyz/goexchange/stores/registry/repository"
	registry_usecase "github.com/x-xyz/goexchange/stores/registry/usecase"
	swap_repository "github.com/x-xyz/goexchange/stores/swap/repository"
)

func init() {
	viper.SetConfigType("yaml")
	viper.SetConfigFile(`infra/configs/config.yaml`)
	err := viper.ReadInConfig()
	if err != nil {
		panic(err)
	}

	if viper.GetBool(`debug`) {
		log.Log().Info("Service RUN on DEBUG mode")
	}
}

func main() {
	// init echo
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{}))
	e.Use(middleware.RequestID())
	middL := mmiddleware.InitMiddleware()
	e.Use(middL.ResponseLogger())
	e.Use(middL.AddContext())
	e.Use(middleware.CORS())
	e.Validator = bValidator.NewCustomValidator(validator.New())

	context := bCtx.Background()

	// init mongo client
	context.Info("init mongo")
	uri := viper.GetString("mongo.uri")
	authDBName := viper.GetString("mongo.authDBName")
	dbName := viper.GetString("mongo.dbName")
	enableSSL := viper.GetBool("mongo.enableSSL")
	checkIndex := viper.GetBool("mongo.checkIndex")
	mongoClient := mongoclient.MustConnectMongoClient(uri, authDBName, dbName, enableSSL, true, 2)
	q := query.New(mongoClient, checkIndex)

	chainId := domain.ChainId(viper.GetInt64("settlement.chainId"))
	engineAddress := domain.Address(viper.GetString("settlement.engine")).ToLower()
	wrappedToken := domain.Address(viper.GetString("settlement.wrappedToken")).ToLower()

	// ledgers and fill state
	nftLedger := asset_repository.NewNFTLedger()
	fundLedger := asset_repository.NewFundLedger()
	stateRepo := exchange_repository.NewStateRepo()

	// swap venue, seeded with the configured fixed rates
	venue := swap_repository.NewRateVenue(&swap_repository.RateVenueCfg{
		VenueAddress: domain.Address(viper.GetString("venue.address")).ToLower(),
		FundLedger:   fundLedger,
	})
	rates := viper.Sub("venue.rates")
	if rates != nil {
		keys := rates.AllSettings()
		for k := range keys {
			src := domain.Address(rates.GetString(fmt.Sprintf("%s.src", k))).ToLower()
			dst := domain.Address(rates.GetString(fmt.Sprintf("%s.dst", k))).ToLower()
			num := rates.GetInt64(fmt.Sprintf("%s.num", k))
			den := rates.GetInt64(fmt.Sprintf("%s.den", k))
			if num <= 0 || den <= 0 {
				context.WithFields(log.Fields{"pair": k}).Warn("skipping malformed venue rate")
				continue
			}
			venue.SetRate(src, dst, big.NewRat(num, den))
		}
	}

	// repositories
	orderRepo := order_repository.NewOrderRepo(q)
	hcRepo := hc_repo.New(mongoClient)
	registryRepo := registry_repository.NewRegistryRepo()

	// usecases
	hc := hc_usecase.New(hcRepo)
	orderUC := order_usecase.New(&order_usecase.OrderUseCaseCfg{
		ChainId:       chainId,
		EngineAddress: engineAddress,
		WrappedToken:  wrappedToken,
		OrderRepo:     orderRepo,
		StateRepo:     stateRepo,
	})
	exchangeUC := exchange_usecase.New(&exchange_usecase.ExchangeUseCaseCfg{
		ChainId:       chainId,
		EngineAddress: engineAddress,
		WrappedToken:  wrappedToken,
		StateRepo:     stateRepo,
		NFTLedger:     nftLedger,
		FundLedger:    fundLedger,
		SwapAdapter:   venue,
	})

	adminAddresses := []domain.Address{}
	for _, addr := range viper.GetStringSlice("admin.addresses") {
		adminAddresses = append(adminAddresses, domain.Address(addr).ToLower())
	}
	registryUC := registry_usecase.New(&registry_usecase.RegistryUseCaseCfg{
		Repo:           registryRepo,
		AdminAddresses: adminAddresses,
	})

	catalog := featureCatalog(exchangeUC)

	hc_delivery.New(e, hc)
	order_delivery.New(e, orderUC)
	exchange_delivery.New(e, exchangeUC)
	registry_delivery.New(e, registryUC, catalog)

	go func() {
		if err := e.Start(viper.GetString("server.address")); err != nil && err != http.ErrServerClosed {
			log.Log().WithField("err", err).Error("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	// Use a buffered channel to avoid missing signals as recommended for signal.Notify
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-quit
	log.Log().WithField("signal", sig).Info("received signal")
	ctx, cancel := bCtx.WithTimeout(context, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Log().WithField("err", err).Error("shutting down the server")
	} else {
		log.Log().Info("shutdown server successfully")
	}
}

// featureCatalog lists the feature implementations the registry may install.
// Versioned names keep older builds addressable for rollback.
func featureCatalog(exchangeUC exchange.UseCase) map[string]registry.Feature {
	remainingUnits := registry.NewFeature("remaining-units/v1", func(c bCtx.Ctx, payload []byte) ([]byte, error) {
		var o order.Order
		if err := json.Unmarshal(payload, &o); err != nil {
			return nil, domain.ErrBadParamInput
		}
		left, err := exchangeUC.RemainingUnits(c, &o)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]string{"remainingUnits": left.String()})
	})

	cancelOrder := registry.NewFeature("cancel-order/v1", func(c bCtx.Ctx, payload []byte) ([]byte, error) {
		p := struct {
			Maker domain.Address `json:"maker"`
			Nonce string         `json:"nonce"`
		}{}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, domain.ErrBadParamInput
		}
		res, err := exchangeUC.CancelOrder(c, p.Maker, p.Nonce)
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)
	})

	return map[string]registry.Feature{
		remainingUnits.Name(): remainingUnits,
		cancelOrder.Name():    cancelOrder,
	}
}
