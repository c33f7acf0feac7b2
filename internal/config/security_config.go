package config

type SecurityLevel int

const (
	SecurityPublic     SecurityLevel = iota // No authentication
	SecurityAccess                          // Access token required
	SecurityServiceKey                      // x-api-key of a trusted backend required
)

const (
	SessionServicePrefix = "/astro.settlement.v1.SessionService/"
	WalletServicePrefix  = "/astro.settlement.v1.WalletService/"
)

// EndpointSecurityConfig maps methods to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	"/grpc.health.v1.Health/Check": SecurityPublic,
	"/grpc.health.v1.Health/Watch": SecurityPublic,

	SessionServicePrefix + "CreateSession":     SecurityAccess,
	SessionServicePrefix + "GetSession":        SecurityAccess,
	SessionServicePrefix + "TransitionSession": SecurityAccess,
	// Reported by the call/chat infrastructure, not by a participant.
	SessionServicePrefix + "EndSession": SecurityServiceKey,

	WalletServicePrefix + "GetBalance":       SecurityAccess,
	WalletServicePrefix + "ListTransactions": SecurityAccess,
	WalletServicePrefix + "InitiateRecharge": SecurityAccess,
	WalletServicePrefix + "RechargeWallet":   SecurityAccess,
}

// GetSecurityLevel returns the security level for a given method
func GetSecurityLevel(method string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[method]; exists {
		return level
	}
	// Default to highest user-facing security for unknown endpoints
	return SecurityAccess
}
