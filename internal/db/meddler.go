package db

import (
	"database/sql"
	"fmt"

	"github.com/goran-ethernal/PaymentIndexor/internal/types"
	"github.com/russross/meddler"
)

func init() {
	meddler.Register("felt", FeltMeddler{})
	meddler.Register("u128", Uint128Meddler{})
}

// FeltMeddler stores a types.Felt as its 0x-prefixed, zero-padded hex string,
// so equal values compare equal in SQL.
type FeltMeddler struct{}

func (FeltMeddler) PreRead(fieldAddr any) (scanTarget any, err error) {
	return new(sql.NullString), nil
}

func (FeltMeddler) PostRead(fieldAddr, scanTarget any) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("expected *sql.NullString, got %T", scanTarget)
	}

	ptr, ok := fieldAddr.(*types.Felt)
	if !ok {
		return fmt.Errorf("expected *types.Felt, got %T", fieldAddr)
	}

	if !ns.Valid {
		*ptr = types.Felt{}
		return nil
	}

	felt, err := types.FeltFromHex(ns.String)
	if err != nil {
		return fmt.Errorf("failed to decode felt column: %w", err)
	}
	*ptr = felt
	return nil
}

func (FeltMeddler) PreWrite(field any) (saveValue any, err error) {
	switch f := field.(type) {
	case types.Felt:
		return f.PaddedHex(), nil
	case *types.Felt:
		if f == nil {
			return nil, nil
		}
		return f.PaddedHex(), nil
	default:
		return nil, fmt.Errorf("expected types.Felt or *types.Felt, got %T", field)
	}
}

// Uint128Meddler stores a types.Uint128 as a 0x-prefixed, 32 digit zero-padded hex string.
type Uint128Meddler struct{}

func (Uint128Meddler) PreRead(fieldAddr any) (scanTarget any, err error) {
	return new(string), nil
}

func (Uint128Meddler) PostRead(fieldAddr, scanTarget any) error {
	s, ok := scanTarget.(*string)
	if !ok {
		return fmt.Errorf("expected *string, got %T", scanTarget)
	}

	ptr, ok := fieldAddr.(*types.Uint128)
	if !ok {
		return fmt.Errorf("expected *types.Uint128, got %T", fieldAddr)
	}

	v, err := types.ParseUint128Hex(*s)
	if err != nil {
		return fmt.Errorf("failed to decode u128 column: %w", err)
	}
	*ptr = v
	return nil
}

func (Uint128Meddler) PreWrite(field any) (saveValue any, err error) {
	v, ok := field.(types.Uint128)
	if !ok {
		return nil, fmt.Errorf("expected types.Uint128, got %T", field)
	}
	return fmt.Sprintf("0x%016x%016x", v.Hi, v.Lo), nil
}
