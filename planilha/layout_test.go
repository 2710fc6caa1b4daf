// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package planilha

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLayout(t *testing.T) {
	l := DefaultLayout()

	assert.Equal(t, 16, l.Width())
	assert.Equal(t, 0, l.Index(FieldQueryDate))
	assert.Equal(t, 5, l.Index(FieldInfractionID))
	assert.Equal(t, 9, l.Index(FieldInfractionDate))
	assert.Equal(t, 14, l.Index(FieldAmount))
	assert.Equal(t, 15, l.Index(FieldPaymentStatus))
}

func TestLayoutValidate(t *testing.T) {
	l := DefaultLayout()

	require.NoError(t, l.Validate(16))
	require.NoError(t, l.Validate(20))

	err := l.Validate(15)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNarrowSheet))
}

func TestNewLayout(t *testing.T) {
	t.Run("missing field", func(t *testing.T) {
		_, err := NewLayout(map[Field]int{FieldQueryDate: 0})
		require.Error(t, err)
	})

	t.Run("duplicate index", func(t *testing.T) {
		_, err := DefaultLayout().WithOverrides(map[string]int{"placa": 0})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "share index 0")
	})

	t.Run("negative index", func(t *testing.T) {
		_, err := DefaultLayout().WithOverrides(map[string]int{"placa": -1})
		require.Error(t, err)
	})
}

func TestWithOverrides(t *testing.T) {
	l, err := DefaultLayout().WithOverrides(map[string]int{
		"status_pagamento": 20,
		"Placa":            2,
	})
	require.NoError(t, err)

	assert.Equal(t, 20, l.Index(FieldPaymentStatus))
	assert.Equal(t, 2, l.Index(FieldPlate))
	assert.Equal(t, 21, l.Width())

	_, err = DefaultLayout().WithOverrides(map[string]int{"cor": 3})
	require.Error(t, err)
}

func TestFieldString(t *testing.T) {
	assert.Equal(t, "auto_infracao", FieldInfractionID.String())
	assert.Equal(t, "Field(42)", Field(42).String())

	f, err := ParseField(" VALOR_PAGAR ")
	require.NoError(t, err)
	assert.Equal(t, FieldAmount, f)
}
