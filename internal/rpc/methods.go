package rpc

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "recipelab.v1.RecipeLab"

const (
	MethodPing              = "Ping"
	MethodSignInAnonymously = "SignInAnonymously"
	MethodLinkEmail         = "LinkEmail"
	MethodSignInWithEmail   = "SignInWithEmail"
	MethodRefreshToken      = "RefreshToken"
	MethodSignOut           = "SignOut"
	MethodWhoAmI            = "WhoAmI"

	MethodPutRecipe     = "PutRecipe"
	MethodGetRecipe     = "GetRecipe"
	MethodDeleteRecipes = "DeleteRecipes"

	MethodSetFavorite = "SetFavorite"

	MethodCreateSuggestion  = "CreateSuggestion"
	MethodListSuggestions   = "ListSuggestions"
	MethodResolveSuggestion = "ResolveSuggestion"

	MethodListNotifications        = "ListNotifications"
	MethodMarkNotificationRead     = "MarkNotificationRead"
	MethodMarkAllNotificationsRead = "MarkAllNotificationsRead"

	MethodGetProfile        = "GetProfile"
	MethodEnsureProfile     = "EnsureProfile"
	MethodUpdateDisplayName = "UpdateDisplayName"
	MethodUpdateAvatar      = "UpdateAvatar"
	MethodAvatarUploadURL   = "AvatarUploadURL"

	MethodFollow        = "Follow"
	MethodUnfollow      = "Unfollow"
	MethodIsFollowing   = "IsFollowing"
	MethodListFollowing = "ListFollowing"

	MethodMoveOwnership = "MoveOwnership"
)

// FullMethod returns the gRPC path of a method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

var public = map[string]bool{
	FullMethod(MethodPing):              true,
	FullMethod(MethodSignInAnonymously): true,
	FullMethod(MethodSignInWithEmail):   true,
	FullMethod(MethodRefreshToken):      true,
	FullMethod(MethodSignOut):           true,
	FullMethod(MethodGetRecipe):         true,
	FullMethod(MethodGetProfile):        true,
}

// IsPublic reports whether fullMethod may be called without an access token.
func IsPublic(fullMethod string) bool {
	return public[fullMethod]
}
