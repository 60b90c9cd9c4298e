package http

import (
	"net/http"

	"github.com/merigaumata/authplatform/pkg/authsdk"
	"github.com/merigaumata/authplatform/pkg/httpx"
	"github.com/merigaumata/authplatform/pkg/jwtx"
)

// JWKSHandler exposes the JSON Web Key Set for public key discovery.
// Retired keys stay listed until their grace period ends.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify JWTs.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get]
func JWKSHandler(keys *jwtx.KeyManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.JWKSResponse(keys.PublicKeySet()))
	}
}
