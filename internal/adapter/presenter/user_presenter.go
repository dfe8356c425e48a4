package presenter

import (
	authDTO "github.com/seedbridge/crm-portal/internal/adapter/dto/auth"
	integrationDTO "github.com/seedbridge/crm-portal/internal/adapter/dto/integration"
	notesDTO "github.com/seedbridge/crm-portal/internal/adapter/dto/notes"
	"github.com/seedbridge/crm-portal/internal/domain/entities"
	"github.com/seedbridge/crm-portal/internal/usecase/auth"
)

// ToUserResponse converts a User entity to UserResponse DTO
func ToUserResponse(u *entities.User) *authDTO.UserResponse {
	if u == nil {
		return nil
	}

	response := &authDTO.UserResponse{
		ID:              u.ID.String(),
		Email:           u.Email,
		Name:            u.Name,
		Role:            string(u.Role),
		GoogleConnected: u.HasGoogleConnection(),
		GoogleScopes:    u.GoogleScopes,
		NotesIngestion:  u.NotesIngestion,
		LastLoginAt:     u.LastLoginAt,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}

	// Set optional fields
	if u.AvatarURL != nil {
		response.AvatarURL = *u.AvatarURL
	}
	if u.OAuthProvider != nil {
		response.OAuthProvider = *u.OAuthProvider
	}

	return response
}

// ToAuthRefreshTokenResponse converts usecase AuthResponse to DTO RefreshTokenResponse (for refresh endpoint)
func ToAuthRefreshTokenResponse(usecaseResp *auth.AuthResponse) *authDTO.RefreshTokenResponse {
	if usecaseResp == nil {
		return nil
	}
	return &authDTO.RefreshTokenResponse{
		AccessToken: usecaseResp.AccessToken,
		ExpiresIn:   int(usecaseResp.ExpiresIn),
		TokenType:   "Bearer",
	}
}

// ToAuthResponse converts usecase AuthResponse to DTO AuthResponse. The
// refresh token travels in a cookie, not in the body.
func ToAuthResponse(usecaseResp *auth.AuthResponse) *authDTO.AuthResponse {
	if usecaseResp == nil {
		return nil
	}

	return &authDTO.AuthResponse{
		AccessToken: usecaseResp.AccessToken,
		ExpiresIn:   int(usecaseResp.ExpiresIn),
		TokenType:   "Bearer",
		User:        ToUserResponse(usecaseResp.User),
	}
}

// ToTokenResponse strips the refresh token from a bundle
func ToTokenResponse(b *entities.TokenBundle) *integrationDTO.TokenResponse {
	if b == nil {
		return nil
	}
	return &integrationDTO.TokenResponse{
		AccessToken: b.AccessToken,
		TokenType:   b.TokenType,
		Expiry:      b.Expiry,
		Scopes:      b.Scopes,
	}
}

// ToIntegrationStatus describes u's Google connection
func ToIntegrationStatus(u *entities.User) *integrationDTO.StatusResponse {
	resp := &integrationDTO.StatusResponse{
		Connected:      u.HasGoogleConnection(),
		Scopes:         u.GoogleScopes,
		NotesIngestion: u.NotesIngestion,
	}
	if resp.Connected {
		resp.Expiry = u.GoogleTokenExpiry
	}
	return resp
}

// ToReviewItems converts flagged match attempts
func ToReviewItems(attempts []*entities.NoteMatchAttempt) []notesDTO.ReviewItem {
	items := make([]notesDTO.ReviewItem, 0, len(attempts))
	for _, a := range attempts {
		items = append(items, notesDTO.ReviewItem{
			FileID:        a.FileID,
			FileName:      a.FileName,
			OwnerEmail:    a.OwnerEmail,
			WebViewLink:   a.WebViewLink,
			Attempts:      a.Attempts,
			LastAttemptAt: a.LastAttemptAt,
		})
	}
	return items
}
