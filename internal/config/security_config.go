// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic  SecurityLevel = iota // No authentication
	SecurityUser                         // Valid access token required
	SecurityAdmin                        // Access token with admin role
	SecurityCron                         // Shared cron bearer secret
	SecurityWebhook                      // Verified by the handler (provider signature)
)

func (l SecurityLevel) String() string {
	switch l {
	case SecurityPublic:
		return "public"
	case SecurityUser:
		return "user"
	case SecurityAdmin:
		return "admin"
	case SecurityCron:
		return "cron"
	case SecurityWebhook:
		return "webhook"
	}
	return "unknown"
}

// EndpointSecurityConfig maps route names to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Public
	"healthz":            SecurityPublic,
	"metrics":            SecurityPublic,
	"check-availability": SecurityPublic,
	"list-blocks":        SecurityPublic,
	"list-items":         SecurityPublic,
	"get-item":           SecurityPublic,
	"list-reviews":       SecurityPublic,
	"review-stats":       SecurityPublic,
	"files":              SecurityPublic,

	// Webhooks - signature checked in the handler
	"stripe-webhook":   SecurityWebhook,
	"telegram-webhook": SecurityWebhook,

	// Cron
	"cron-telegram-reminders": SecurityCron,
	"cron-overdue-rentals":    SecurityCron,

	// Admin
	"admin-dashboard": SecurityAdmin,

	// Everything else requires a signed-in user
	"create-block":            SecurityUser,
	"delete-block":            SecurityUser,
	"create-rental":           SecurityUser,
	"list-rentals":            SecurityUser,
	"get-rental":              SecurityUser,
	"confirm-pickup":          SecurityUser,
	"initiate-return":         SecurityUser,
	"confirm-return":          SecurityUser,
	"cancel-rental":           SecurityUser,
	"generate-agreement":      SecurityUser,
	"accept-agreement":        SecurityUser,
	"create-checkout-session": SecurityUser,
	"stripe-connect":          SecurityUser,
	"list-messages":           SecurityUser,
	"send-message":            SecurityUser,
	"mark-messages-read":      SecurityUser,
	"messages-ws":             SecurityUser,
	"create-review":           SecurityUser,
	"create-item":             SecurityUser,
	"update-item":             SecurityUser,
	"delete-item":             SecurityUser,
	"list-notifications":      SecurityUser,
	"read-notification":       SecurityUser,
	"telegram-link":           SecurityUser,
	"upload-images":           SecurityUser,
}

// GetSecurityLevel returns the security level for a route name. Unknown
// routes require a signed-in user.
func GetSecurityLevel(routeName string) SecurityLevel {
	if level, ok := EndpointSecurityConfig[routeName]; ok {
		return level
	}
	return SecurityUser
}
