package middleware

import (
	"crypto/sha256"
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/erp/portalsync/internal/domain/erpsync"
	"github.com/erp/portalsync/internal/interfaces/http/dto"
)

// DefaultSecretHeader is the header carrying the shared trigger secret.
const DefaultSecretHeader = "X-Sync-Secret"

// SharedSecretConfig configures SharedSecret. When SecretHash is set it
// wins over Secret.
type SharedSecretConfig struct {
	Header     string
	Secret     string
	SecretHash string
}

// SharedSecret authorizes trigger calls by a pre-shared secret header.
// It fails closed: with neither Secret nor SecretHash configured every
// request is rejected.
func SharedSecret(cfg SharedSecretConfig, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	header := cfg.Header
	if header == "" {
		header = DefaultSecretHeader
	}
	check := secretChecker(cfg)

	return func(c *gin.Context) {
		if check == nil {
			logger.Error("Sync trigger rejected: no shared secret configured",
				zap.String("path", c.Request.URL.Path))
			abortWithError(c, erpsync.KindUnauthorized, dto.ErrCodeSecretMissing,
				"sync triggers are disabled until a shared secret is configured")
			return
		}

		presented := c.GetHeader(header)
		if presented == "" || !check(presented) {
			logger.Warn("Sync trigger rejected: bad shared secret",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
				zap.Bool("header_present", presented != ""),
			)
			abortWithError(c, erpsync.KindUnauthorized, dto.ErrCodeUnauthorized,
				"missing or invalid "+header+" header")
			return
		}
		c.Next()
	}
}

func secretChecker(cfg SharedSecretConfig) func(string) bool {
	switch {
	case cfg.SecretHash != "":
		hash := []byte(cfg.SecretHash)
		return func(presented string) bool {
			return bcrypt.CompareHashAndPassword(hash, []byte(presented)) == nil
		}
	case cfg.Secret != "":
		// comparing digests keeps the compare independent of the secret length
		want := sha256.Sum256([]byte(cfg.Secret))
		return func(presented string) bool {
			got := sha256.Sum256([]byte(presented))
			return subtle.ConstantTimeCompare(want[:], got[:]) == 1
		}
	default:
		return nil
	}
}
