package common

// AuthorizationHeaderName is the HTTP header carrying the access token.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the only authorization scheme accepted by the server.
const BearerScheme = "Bearer"

// MinPasswordLength is the minimal password length, counted in characters.
const MinPasswordLength = 6

// MaxFieldLength is the column width of users.email and users.full_name,
// counted in characters.
const MaxFieldLength = 255
