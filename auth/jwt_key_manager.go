package auth

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig holds the key material for one signing method
type JWTConfig struct {
	SigningMethod string
	Secret        string //nolint:gosec // HMAC secret

	// Asymmetric keys, either as file paths or inline PEM content.
	// The private key is optional; without it the manager can only verify.
	PrivateKeyPath string
	PublicKeyPath  string
	PrivateKey     string
	PublicKey      string
}

// JWTKeyManager manages JWT signing and verification keys
type JWTKeyManager struct {
	config        JWTConfig
	signingKey    any // []byte, *rsa.PrivateKey, *ecdsa.PrivateKey, or nil
	verifyingKey  any // []byte, *rsa.PublicKey, or *ecdsa.PublicKey
	signingMethod jwt.SigningMethod
}

// NewJWTKeyManager creates a new JWT key manager
func NewJWTKeyManager(config JWTConfig) (*JWTKeyManager, error) {
	manager := &JWTKeyManager{
		config: config,
	}

	if err := manager.loadKeys(); err != nil {
		return nil, fmt.Errorf("failed to load JWT keys: %w", err)
	}

	return manager, nil
}

// loadKeys loads the appropriate keys based on the signing method
func (m *JWTKeyManager) loadKeys() error {
	switch m.config.SigningMethod {
	case "HS256":
		return m.loadHMACKeys()
	case "RS256":
		m.signingMethod = jwt.SigningMethodRS256
		return m.loadAsymmetricKeys(
			func(b []byte) (any, error) { return parseRSAPrivateKey(b) },
			func(b []byte) (any, error) { return parseRSAPublicKey(b) },
		)
	case "ES256":
		m.signingMethod = jwt.SigningMethodES256
		return m.loadAsymmetricKeys(
			func(b []byte) (any, error) { return parseECDSAPrivateKey(b) },
			func(b []byte) (any, error) { return parseECDSAPublicKey(b) },
		)
	default:
		return fmt.Errorf("unsupported signing method: %s", m.config.SigningMethod)
	}
}

// loadHMACKeys loads HMAC secret
func (m *JWTKeyManager) loadHMACKeys() error {
	if m.config.Secret == "" {
		return fmt.Errorf("hmac secret is required for HS256")
	}
	m.signingMethod = jwt.SigningMethodHS256
	secret := []byte(m.config.Secret)
	m.signingKey = secret
	m.verifyingKey = secret
	return nil
}

func (m *JWTKeyManager) loadAsymmetricKeys(parsePrivate, parsePublic func([]byte) (any, error)) error {
	publicKeyData, err := getKeyData(m.config.PublicKeyPath, m.config.PublicKey)
	if err != nil {
		return fmt.Errorf("failed to get %s public key: %w", m.config.SigningMethod, err)
	}
	publicKey, err := parsePublic(publicKeyData)
	if err != nil {
		return fmt.Errorf("failed to parse %s public key: %w", m.config.SigningMethod, err)
	}
	m.verifyingKey = publicKey

	if m.config.PrivateKeyPath == "" && m.config.PrivateKey == "" {
		return nil
	}
	privateKeyData, err := getKeyData(m.config.PrivateKeyPath, m.config.PrivateKey)
	if err != nil {
		return fmt.Errorf("failed to get %s private key: %w", m.config.SigningMethod, err)
	}
	privateKey, err := parsePrivate(privateKeyData)
	if err != nil {
		return fmt.Errorf("failed to parse %s private key: %w", m.config.SigningMethod, err)
	}
	m.signingKey = privateKey
	return nil
}

// getKeyData retrieves key data from file path or direct content
func getKeyData(keyPath, keyContent string) ([]byte, error) {
	if keyContent != "" {
		return []byte(keyContent), nil
	}

	if keyPath != "" {
		data, err := os.ReadFile(keyPath) // #nosec G304
		if err != nil {
			return nil, fmt.Errorf("failed to read key file %s: %w", keyPath, err)
		}
		return data, nil
	}

	return nil, fmt.Errorf("neither key path nor key content provided")
}

// CreateToken creates a new JWT token with the configured signing method
func (m *JWTKeyManager) CreateToken(claims jwt.Claims) (string, error) {
	if m.signingKey == nil {
		return "", fmt.Errorf("no private key configured for %s", m.config.SigningMethod)
	}
	token := jwt.NewWithClaims(m.signingMethod, claims)
	return token.SignedString(m.signingKey)
}

// VerifyToken verifies a JWT token using the configured verification key
func (m *JWTKeyManager) VerifyToken(tokenString string, claims jwt.Claims) (*jwt.Token, error) {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Verify the signing method matches what we expect
		if token.Method != m.signingMethod {
			return nil, fmt.Errorf("unexpected signing method: %v (expected %v)", token.Header["alg"], m.signingMethod.Alg())
		}
		return m.verifyingKey, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}

	return token, nil
}

// GetPublicKey returns the public key for asymmetric methods
func (m *JWTKeyManager) GetPublicKey() any {
	switch m.config.SigningMethod {
	case "RS256", "ES256":
		return m.verifyingKey
	default:
		return nil
	}
}

// GetSigningMethod returns the current signing method
func (m *JWTKeyManager) GetSigningMethod() string {
	return m.config.SigningMethod
}

// Key parsing utility functions

func parseRSAPrivateKey(keyData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("not an RSA private key")
		}
		return rsaKey, nil
	default:
		return nil, fmt.Errorf("unsupported private key type: %s", block.Type)
	}
}

func parseRSAPublicKey(keyData []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("not an RSA public key")
		}
		return rsaKey, nil
	default:
		return nil, fmt.Errorf("unsupported public key type: %s", block.Type)
	}
}

func parseECDSAPrivateKey(keyData []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	switch block.Type {
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		ecdsaKey, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("not an ECDSA private key")
		}
		return ecdsaKey, nil
	default:
		return nil, fmt.Errorf("unsupported private key type: %s", block.Type)
	}
}

func parseECDSAPublicKey(keyData []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	if block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("unsupported public key type: %s", block.Type)
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	ecdsaKey, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an ECDSA public key")
	}
	return ecdsaKey, nil
}
