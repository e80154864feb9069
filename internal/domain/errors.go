package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("no encontrado")
	ErrEmptyCart         = errors.New("el carrito está vacío")
	ErrInvalidQuantity   = errors.New("la cantidad debe ser mayor que cero")
	ErrInvalidInput      = errors.New("datos inválidos")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrInvalidTransition = errors.New("transición de estado de pago inválida")
)

// InvalidInput wraps ErrInvalidInput with a field specific message.
func InvalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// StockError identifies the line that aborted an order.
type StockError struct {
	Title     string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("sin stock suficiente para %s (pedido: %d, disponible: %d)", e.Title, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }
