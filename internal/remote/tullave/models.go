package tullave

import "github.com/shopspring/decimal"

// apiErrorBody is the error payload the card API returns on non-2xx
// responses. It is decoded best-effort, the body is not always present.
type apiErrorBody struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// CardStatus is the response of GET /card/valid/{serial}.
type CardStatus struct {
	Card       string `json:"card"`
	IsValid    bool   `json:"isValid"`
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
}

// CardInformation is the response of GET /card/getInformation/{serial}.
type CardInformation struct {
	CardNumber   string `json:"cardNumber"`
	ProfileCode  string `json:"profileCode"`
	Profile      string `json:"profile"`
	ProfileES    string `json:"profile_es,omitempty"`
	BankCode     string `json:"bankCode"`
	BankName     string `json:"bankName"`
	UserName     string `json:"userName"`
	UserLastName string `json:"userLastName"`
}

// HolderName joins the holder's first and last name into the display name
// stored on the registered card.
func (i CardInformation) HolderName() string {
	return i.UserName + " " + i.UserLastName
}

// CardBalance is the response of GET /card/getBalance/{serial}. Amounts come
// from the API as whole pesos.
type CardBalance struct {
	Card               string `json:"card"`
	Balance            int64  `json:"balance"`
	BalanceDate        string `json:"balanceDate"`
	VirtualBalance     int64  `json:"virtualBalance"`
	VirtualBalanceDate string `json:"virtualBalanceDate"`
}

// Amount returns the card balance as a decimal amount.
func (b CardBalance) Amount() decimal.Decimal {
	return decimal.NewFromInt(b.Balance)
}

// VirtualAmount returns the virtual balance as a decimal amount.
func (b CardBalance) VirtualAmount() decimal.Decimal {
	return decimal.NewFromInt(b.VirtualBalance)
}
