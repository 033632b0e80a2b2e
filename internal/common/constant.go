package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// DefaultBatchSize caps the number of records rewritten inside one remote
// write group.
const DefaultBatchSize = 500

// Keys of the device-local settings store.
const (
	SettingDeviceID        = "device-id"
	SettingAnonymousUID    = "anonymous-uid"
	SettingAnonymousToken  = "anonymous-token"
	SettingPreviousUIDs    = "previous-uids"
	SettingEmailForLinking = "email-for-linking"
	SettingEmailForSignIn  = "email-for-sign-in"
	SettingAccessToken     = "access-token"
	SettingRefreshToken    = "refresh-token"
)
