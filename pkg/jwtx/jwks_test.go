package jwtx_test

import (
	"encoding/json"
	"testing"

	"github.com/merigaumata/authplatform/pkg/jwtx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWK_RoundTrip(t *testing.T) {
	for _, alg := range jwtx.SupportedAlgorithms {
		t.Run(alg, func(t *testing.T) {
			s, _, err := jwtx.GenerateSigner(alg, "k1", 0)
			require.NoError(t, err)

			j := s.PublicJWK()
			assert.Equal(t, "k1", j.Kid)
			assert.Equal(t, alg, j.Alg)
			assert.Equal(t, "sig", j.Use)

			data, err := json.Marshal(jwtx.JWKS{Keys: []jwtx.JWK{j}})
			require.NoError(t, err)

			var decoded jwtx.JWKS
			require.NoError(t, json.Unmarshal(data, &decoded))

			got, ok := decoded.Find("k1")
			require.True(t, ok)
			_, err = got.PublicKey()
			require.NoError(t, err)
		})
	}
}

func TestJWK_PublicKeyRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		jwk  jwtx.JWK
	}{
		{"unknown kty", jwtx.JWK{Kty: "oct", Kid: "x"}},
		{"rsa missing modulus", jwtx.JWK{Kty: "RSA", Kid: "x", E: "AQAB"}},
		{"ec off curve", jwtx.JWK{Kty: "EC", Kid: "x", Crv: "P-256", X: "AQ", Y: "AQ"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.jwk.PublicKey()
			require.Error(t, err)
		})
	}
}

func TestJWKS_FindMissing(t *testing.T) {
	_, ok := jwtx.JWKS{}.Find("nope")
	assert.False(t, ok)
}
