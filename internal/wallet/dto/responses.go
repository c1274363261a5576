package dto

type WalletResponse struct {
	UserID  string `json:"userId"`
	Balance string `json:"balance"` // two decimal places
}
