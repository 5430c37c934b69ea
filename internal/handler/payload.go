package handler

type initiateEmailVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyOtpRequest struct {
	Email string `json:"email" validate:"required,email"`
	Otp   string `json:"otp"   validate:"required,len=4,numeric"`
}

type verificationTokenResponse struct {
	VerificationToken string `json:"verificationToken"`
}

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=32"`
	Name     string `json:"name"     validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
	Token    string `json:"token"    validate:"required"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	UserID       string `json:"userId"       validate:"required"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type socialLoginRequest struct {
	Token string `json:"token" validate:"required"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"       validate:"required,email"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
	Token       string `json:"token"       validate:"required"`
}

type findUsernameResponse struct {
	Username string `json:"username"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type attestationVerifyRequest struct {
	Platform string `json:"platform" validate:"required,oneof=android ios"`
	Token    string `json:"token"    validate:"required"`
	Nonce    string `json:"nonce"    validate:"required"`
}

type ingestHealthDataRequest struct {
	Date     string  `json:"date"     validate:"omitempty,datetime=2006-01-02"`
	Steps    int64   `json:"steps"    validate:"min=0"`
	Duration int64   `json:"duration" validate:"min=0"`
	Calories float64 `json:"calories" validate:"min=0"`
	Distance float64 `json:"distance" validate:"min=0"`
}
