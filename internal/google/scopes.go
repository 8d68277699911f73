package google

// DriveScope grants full read/write access to the user's Drive, needed to
// create the target folder and replace the uploaded artifact.
const DriveScope = "https://www.googleapis.com/auth/drive"

// DefaultOAuthScopes are the scopes requested when the configuration does not
// name any.
var DefaultOAuthScopes = []string{
	DriveScope,
}

// scopesOrDefault returns scopes, or DefaultOAuthScopes when empty.
func scopesOrDefault(scopes []string) []string {
	if len(scopes) == 0 {
		return DefaultOAuthScopes
	}
	return scopes
}
