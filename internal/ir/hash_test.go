package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashDeterminism(t *testing.T) {
	obj := IRObject{"op": IRString("EQUALS"), "field": IRString("name"), "values": IRArray{IRString("Ada")}}

	h1, err := ConditionHash(obj)
	require.NoError(t, err)
	h2, err := ConditionHash(IRObject{"values": IRArray{IRString("Ada")}, "field": IRString("name"), "op": IRString("EQUALS")})
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "key order must not change the hash")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestHashDomainSeparation(t *testing.T) {
	obj := IRObject{"name": IRString("findByName")}

	cond, err := ConditionHash(obj)
	require.NoError(t, err)
	query, err := QueryHash(obj)
	require.NoError(t, err)
	sig, err := SignatureHash(obj)
	require.NoError(t, err)

	assert.NotEqual(t, cond, query)
	assert.NotEqual(t, query, sig)
	assert.NotEqual(t, cond, sig)
}

func TestHashChangesWithInput(t *testing.T) {
	a := MustHash(DomainValue, IRObject{"age": IRInt(33)})
	b := MustHash(DomainValue, IRObject{"age": IRInt(34)})
	assert.NotEqual(t, a, b)
}

func TestHashNullFails(t *testing.T) {
	_, err := Hash(DomainValue, IRObject{"x": IRNull{}})
	require.Error(t, err)
	assert.Panics(t, func() { MustHash(DomainValue, IRObject{"x": IRNull{}}) })
}
