package account

// Client-facing messages.
const (
	msgAllFieldsRequired     = "All fields are required"
	msgUserExists            = "User with email or username already exists"
	msgAvatarRequired        = "Avatar file is required"
	msgRegisterFailed        = "Something went wrong while registering the user"
	msgLoginIdentRequired    = "Username or email is required"
	msgUserNotFound          = "User does not exist"
	msgInvalidCredentials    = "Invalid user credentials"
	msgTokenGenerationFailed = "Something went wrong while generating refresh and access token"
	msgUnauthorizedRequest   = "Unauthorized request"
	msgInvalidRefreshToken   = "Invalid refresh token"
	msgRefreshTokenUsed      = "Refresh token is expired or used"
	msgPasswordsRequired     = "Old and new password are required"
	msgInvalidOldPassword    = "Invalid old password"
	msgEmailTaken            = "Email is already in use"
	msgInvalidEmail          = "Email address is invalid"
	msgInvalidAccountDetails = "Invalid account details"
	msgAvatarMissing         = "Avatar file is missing"
	msgAvatarUploadFailed    = "Error while uploading avatar"
	msgCoverMissing          = "Cover image file is missing"
	msgCoverUploadFailed     = "Error while uploading cover image"
)
