// Package token decodifica y sanity-checkea session tokens firmados (JWS
// compacto de tres segmentos) emitidos por el identity provider.
//
// La verificación de firma NO ocurre acá: está delegada al provider que
// emite el token. Este boundary solo valida estructura, claims requeridas
// y expiración. Toda falla se loguea con diagnóstico y se reporta al
// caller como un único ErrInvalidToken, así hay un solo camino de error.
package token

import (
	"errors"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/aulaone/rolesync/internal/observability/logger"
)

// ErrInvalidToken es la señal uniforme de token inválido (malformado,
// incompleto o expirado). Los callers no distinguen causas.
var ErrInvalidToken = errors.New("token: invalid")

// Claims es el payload decodificado de un token válido.
// Se construye una vez por decode exitoso y no se muta.
type Claims struct {
	Subject   string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time

	// RoleClaim es el claim "role" crudo. Opcional; puede venir vacío.
	RoleClaim string
}

// Parse decodifica un token compacto y valida estructura y expiración.
// Retorna (*Claims, nil) o (nil, ErrInvalidToken). Nunca panickea.
func Parse(raw string) (*Claims, error) {
	log := logger.Named("token")

	if strings.TrimSpace(raw) == "" {
		log.Debug("rejecting empty token")
		return nil, ErrInvalidToken
	}
	if strings.Count(raw, ".") != 2 {
		log.Debug("rejecting token without three segments")
		return nil, ErrInvalidToken
	}

	// ParseUnverified decodifica header+payload (base64url + JSON) sin
	// tocar la firma, que es exactamente el contrato de este boundary.
	mc := jwtv5.MapClaims{}
	if _, _, err := jwtv5.NewParser().ParseUnverified(raw, mc); err != nil {
		log.Debug("token decode failed", logger.Err(err))
		return nil, ErrInvalidToken
	}

	sub, _ := mc["sub"].(string)
	iss, _ := mc["iss"].(string)
	if sub == "" || iss == "" {
		log.Debug("token missing sub/iss")
		return nil, ErrInvalidToken
	}

	exp, ok := numericClaim(mc, "exp")
	if !ok {
		log.Debug("token missing exp")
		return nil, ErrInvalidToken
	}
	expiresAt := time.Unix(exp, 0)
	if !expiresAt.After(time.Now()) {
		log.Debug("token expired", logger.String("sub", sub))
		return nil, ErrInvalidToken
	}

	c := &Claims{
		Subject:   sub,
		Issuer:    iss,
		ExpiresAt: expiresAt,
	}
	if iat, ok := numericClaim(mc, "iat"); ok {
		c.IssuedAt = time.Unix(iat, 0)
	}
	if r, ok := mc["role"].(string); ok {
		c.RoleClaim = r
	}
	return c, nil
}

// numericClaim lee un claim numérico en segundos Unix.
// JSON decodifica números como float64; json.Number no aplica acá.
func numericClaim(mc jwtv5.MapClaims, key string) (int64, bool) {
	switch v := mc[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}
