package request

type Login struct {
	Login    string `json:"login" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Remember bool   `json:"remember"`
}

type OTPLogin struct {
	Login string `json:"login" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type RememberLogin struct {
	Login string `json:"login" validate:"required,email"`
	Token string `json:"token" validate:"required"`
}
