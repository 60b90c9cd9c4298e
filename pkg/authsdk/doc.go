/*
Package authsdk is the Go client for the authentication service.

# SDKClient vs Session

SDKClient covers the public endpoints and the service-to-service endpoints:

	client := authsdk.NewSDKClient("https://auth.example.com")

	health, err := client.GetLiveness(ctx)
	jwks, err := client.GetJWKS(ctx)
	user, err := client.Register(ctx, authsdk.RegisterRequest{...})

Session is a logged-in user. It refreshes the access token shortly before
it expires, rotating the refresh token each time:

	session, err := client.AuthenticateWithPassword(ctx, "alice", password)
	token, err := session.Token(ctx)

	// Admin operations require ROLE_ADMIN
	keys, err := session.ListKeys(ctx)

	err = session.Logout(ctx)

# Errors

Every non-2xx response is returned as an *APIError decoded from the error
envelope. Errors compare by code against the apperr sentinels:

	_, err := client.Login(ctx, "alice", "wrong")
	if errors.Is(err, apperr.ErrAccountLocked) {
		var apiErr *authsdk.APIError
		errors.As(err, &apiErr)
		wait := apiErr.RetryAfter()
	}

# Service credentials

Calls under /internal authenticate with the shared service secret:

	client.ServiceSecret = os.Getenv("SERVICE_SHARED_SECRET")
	client.ServiceName = "user-service"
	tok, err := client.ServiceToken(ctx, "user-service")

# Key verification

SDKClient implements the fetcher used by jwks.RemoteKeySet, so a resource
service can validate tokens against the auth service's published keys:

	keys := jwks.NewRemoteKeySet(client, cache, jwks.Options{})
*/
package authsdk
