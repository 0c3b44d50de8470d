package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"
)

// TokenInfo is what the middleware needs from a verified ID token.
type TokenInfo struct {
	UID   string
	Name  string
	Admin bool
}

type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

// VerifyToken validates a Firebase ID token and extracts the caller's
// identity. Operators carry an "admin" custom claim.
func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (*TokenInfo, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}

	info := &TokenInfo{UID: result.UID}
	if name, ok := result.Claims["name"].(string); ok {
		info.Name = name
	}
	if admin, ok := result.Claims["admin"].(bool); ok {
		info.Admin = admin
	}
	return info, nil
}

func (f *FirebaseAuthClient) GenerateToken(ctx context.Context, uid string) (string, error) {
	token, err := f.client.CustomToken(ctx, uid)
	if err != nil {
		return "", err
	}
	return token, nil
}
