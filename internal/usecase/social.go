package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/chayanin-k/walkmate-api/internal/apperror"
	"github.com/chayanin-k/walkmate-api/internal/model"
	"github.com/chayanin-k/walkmate-api/internal/provider"
	"github.com/chayanin-k/walkmate-api/internal/repository"
	"github.com/chayanin-k/walkmate-api/internal/token"
)

// SocialAuthUsecase signs a user in with a third-party credential,
// creating the account on first contact.
type SocialAuthUsecase interface {
	FacebookLogin(ctx context.Context, accessToken string) (*AuthResult, error)
	LineLogin(ctx context.Context, accessToken string) (*AuthResult, error)
	GoogleLogin(ctx context.Context, idToken string) (*AuthResult, error)
	AppleLogin(ctx context.Context, identityToken string) (*AuthResult, error)
}

type socialAuthUsecase struct {
	userRepo repository.UserRepository
	issuer   *token.Issuer
	facebook provider.TokenExchanger
	line     provider.TokenExchanger
	google   provider.TokenExchanger
	apple    provider.TokenExchanger
}

func NewSocialAuthUsecase(
	userRepo repository.UserRepository,
	issuer *token.Issuer,
	facebook, line, google, apple provider.TokenExchanger,
) SocialAuthUsecase {
	return &socialAuthUsecase{
		userRepo: userRepo,
		issuer:   issuer,
		facebook: facebook,
		line:     line,
		google:   google,
		apple:    apple,
	}
}

func (u *socialAuthUsecase) FacebookLogin(ctx context.Context, accessToken string) (*AuthResult, error) {
	return u.signIn(ctx, u.facebook, accessToken, model.ProviderFacebook)
}

func (u *socialAuthUsecase) GoogleLogin(ctx context.Context, idToken string) (*AuthResult, error) {
	return u.signIn(ctx, u.google, idToken, model.ProviderGoogle)
}

func (u *socialAuthUsecase) AppleLogin(ctx context.Context, identityToken string) (*AuthResult, error) {
	return u.signIn(ctx, u.apple, identityToken, model.ProviderApple)
}

// LineLogin differs from the other providers: the email may be a
// synthesized placeholder, so lookup goes by (providerID, provider)
// first, and a repeat login with a changed Line user id updates the
// stored provider id in place.
func (u *socialAuthUsecase) LineLogin(ctx context.Context, accessToken string) (*AuthResult, error) {
	profile, err := u.line.Exchange(ctx, accessToken)
	if err != nil {
		return nil, apperror.Unauthorized(err.Error())
	}

	user, err := u.userRepo.GetUserByProvider(ctx, profile.ProviderID, model.ProviderLine)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	if user == nil && !provider.IsLinePlaceholderEmail(profile.Email) {
		user, err = u.userRepo.GetUserByEmail(ctx, profile.Email)
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
	}

	switch {
	case user == nil:
		user, err = u.createSocialUser(ctx, profile, model.ProviderLine)
		if err != nil {
			return nil, err
		}
	case user.Provider != model.ProviderLine:
		return nil, apperror.Conflict("account already registered with a different method")
	case user.ProviderID != profile.ProviderID:
		if err := u.userRepo.UpdateProviderID(ctx, user.ID.Hex(), profile.ProviderID); err != nil {
			return nil, err
		}
		user.ProviderID = profile.ProviderID
	}

	return createAuthSession(ctx, u.userRepo, u.issuer, user)
}

// signIn is the common shape of the Facebook, Google and Apple flows:
// exchange the token, look up by email, reject a provider mismatch,
// create the account on first contact.
func (u *socialAuthUsecase) signIn(
	ctx context.Context,
	exchanger provider.TokenExchanger,
	providerToken string,
	authProvider model.AuthProvider,
) (*AuthResult, error) {
	profile, err := exchanger.Exchange(ctx, providerToken)
	if err != nil {
		return nil, apperror.Unauthorized(err.Error())
	}

	user, err := u.userRepo.GetUserByEmail(ctx, profile.Email)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}

		user, err = u.createSocialUser(ctx, profile, authProvider)
		if err != nil {
			return nil, err
		}
	} else if user.Provider != authProvider {
		return nil, apperror.Conflict("email already registered with a different method")
	}

	return createAuthSession(ctx, u.userRepo, u.issuer, user)
}

func (u *socialAuthUsecase) createSocialUser(
	ctx context.Context,
	profile *provider.Profile,
	authProvider model.AuthProvider,
) (*model.User, error) {
	username, err := u.uniqueUsername(ctx, usernameBase(profile, authProvider))
	if err != nil {
		return nil, err
	}

	user, err := u.userRepo.CreateUser(ctx, &model.User{
		Email:      profile.Email,
		Username:   username,
		Name:       profile.Name,
		Provider:   authProvider,
		ProviderID: profile.ProviderID,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperror.Conflict("email already exists")
		}
		return nil, err
	}

	return user, nil
}

// uniqueUsername disambiguates a base username with a numeric suffix on
// collision.
func (u *socialAuthUsecase) uniqueUsername(ctx context.Context, base string) (string, error) {
	username := base
	for counter := 1; ; counter++ {
		_, err := u.userRepo.GetUserByUsername(ctx, username)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return username, nil
		}
		if err != nil {
			return "", err
		}

		username = fmt.Sprintf("%s%d", base, counter)
	}
}

// usernameBase derives a starting username: the email local-part for
// providers that return a real email, the display name for Line whose
// emails are often placeholders.
func usernameBase(profile *provider.Profile, authProvider model.AuthProvider) string {
	if authProvider == model.ProviderLine {
		if profile.Name != "" {
			return strings.ToLower(strings.ReplaceAll(profile.Name, " ", "_"))
		}
		return "line_" + profile.ProviderID[:min(8, len(profile.ProviderID))]
	}

	base := profile.Email
	if at := strings.Index(base, "@"); at > 0 {
		base = base[:at]
	}
	return strings.ToLower(base)
}
