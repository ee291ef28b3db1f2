package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
)

// Credentials are the connection settings parsed from a credential blob.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
	Endpoint        string
	UsePathStyle    bool
	UseSSL          bool
}

// Recognised credential keys. Matching is case-insensitive.
const (
	KeyAccessKeyID     = "AccessKeyId"
	KeySecretAccessKey = "SecretAccessKey"
	KeySessionToken    = "SessionToken"
	KeyRegion          = "Region"
	KeyEndpoint        = "Endpoint"
	KeyUsePathStyle    = "UsePathStyle"
	KeyUseSSL          = "UseSSL"
)

// ParseCredentials parses a plaintext credential blob. The blob is either
// dotenv-style KEY=VALUE lines or a single-line connection string of
// semicolon-separated KEY=VALUE pairs.
func ParseCredentials(blob []byte) (*Credentials, error) {
	text := strings.TrimSpace(string(blob))
	if text == "" {
		return nil, errors.NewConfigError("credential blob is empty")
	}
	if !strings.Contains(text, "\n") && strings.Contains(text, ";") {
		text = strings.ReplaceAll(text, ";", "\n")
	}

	raw, err := godotenv.Unmarshal(text)
	if err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("parse credentials: %v", err))
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		values[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	get := func(key string) string { return values[strings.ToLower(key)] }

	creds := &Credentials{
		AccessKeyID:     get(KeyAccessKeyID),
		SecretAccessKey: get(KeySecretAccessKey),
		SessionToken:    get(KeySessionToken),
		Region:          get(KeyRegion),
		Endpoint:        get(KeyEndpoint),
		UseSSL:          true,
	}
	if v := get(KeyUsePathStyle); v != "" {
		if creds.UsePathStyle, err = strconv.ParseBool(v); err != nil {
			return nil, errors.NewConfigError(fmt.Sprintf("%s must be a boolean, got %q", KeyUsePathStyle, v))
		}
	}
	if v := get(KeyUseSSL); v != "" {
		if creds.UseSSL, err = strconv.ParseBool(v); err != nil {
			return nil, errors.NewConfigError(fmt.Sprintf("%s must be a boolean, got %q", KeyUseSSL, v))
		}
	}

	if (creds.AccessKeyID == "") != (creds.SecretAccessKey == "") {
		return nil, errors.NewConfigError(fmt.Sprintf("%s and %s must be set together", KeyAccessKeyID, KeySecretAccessKey))
	}
	return creds, nil
}

// HasStaticKeys reports whether explicit access keys were supplied.
func (c *Credentials) HasStaticKeys() bool {
	return c.AccessKeyID != ""
}
