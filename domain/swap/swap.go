package swap

import (
	"math/big"

	"github.com/x-xyz/goexchange/base/ctx"
	"github.com/x-xyz/goexchange/domain"
)

// ExactOutputRequest asks the venue for exactly RequiredOutput of the path's
// terminal currency, spending at most SourceCeiling of its first currency.
type ExactOutputRequest struct {
	Path           []domain.Address
	SourceCeiling  *big.Int
	RequiredOutput *big.Int
	Payer          domain.Address
	Recipient      domain.Address
}

// ExactInputRequest spends exactly ExactInput of the path's first currency
// and fails if the realized output is below MinOutput.
type ExactInputRequest struct {
	Path       []domain.Address
	ExactInput *big.Int
	MinOutput  *big.Int
	Payer      domain.Address
	Recipient  domain.Address
}

// Adapter is the external AMM router boundary. Implementations are
// untrusted: they may fail or deliver less than hoped, and the engine never
// mutates its own state before adapter calls settle.
type Adapter interface {
	// SwapExactOutput returns the amount of source currency actually spent
	SwapExactOutput(c ctx.Ctx, req *ExactOutputRequest) (*big.Int, error)
	// SwapExactInput returns the amount of output currency actually received
	SwapExactInput(c ctx.Ctx, req *ExactInputRequest) (*big.Int, error)
}

// Leg is one payment-assembly step of a fill: convert up to SourceCeiling of
// Path's first currency into exactly Output of the required payment
// currency. A single-element Path equal to the required currency is a
// pass-through leg, moved directly from the payer with no conversion.
type Leg struct {
	Path          []domain.Address `json:"path"`
	SourceCeiling string           `json:"sourceCeiling"`
	Output        string           `json:"output"`
}
