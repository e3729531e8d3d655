package models

import "time"

type TransactionType string

const (
	TransactionPayment       TransactionType = "PAYMENT"
	TransactionTransfer      TransactionType = "TRANSFER"
	TransactionFundWallet    TransactionType = "FUND_WALLET"
	TransactionWithdrawal    TransactionType = "WITHDRAWAL"
	TransactionReferralBonus TransactionType = "REFERRAL_BONUS"
)

type TransactionStatus string

const (
	StatusPending    TransactionStatus = "PENDING"
	StatusSuccessful TransactionStatus = "SUCCESSFUL"
	StatusFailed     TransactionStatus = "FAILED"
)

// Terminal reports whether no further transition is allowed.
func (s TransactionStatus) Terminal() bool {
	return s == StatusSuccessful || s == StatusFailed
}

type Processor string

const (
	ProcessorFlutterwave Processor = "FLUTTERWAVE"
	ProcessorPaystack    Processor = "PAYSTACK"
)

type CardAction string

const (
	CardAttach  CardAction = "ATTACH"
	CardDetach  CardAction = "DETACH"
	CardEnable  CardAction = "ENABLE"
	CardDisable CardAction = "DISABLE"
	CardDelete  CardAction = "DELETE"
)

type OTPPurpose string

const (
	OTPAddCard       OTPPurpose = "ADD_CARD"
	OTPDisableCard   OTPPurpose = "DISABLE_CARD"
	OTPResetPassword OTPPurpose = "RESET_PASSWORD"
	OTPResetPin      OTPPurpose = "RESET_PIN"
)

func (p OTPPurpose) Valid() bool {
	switch p {
	case OTPAddCard, OTPDisableCard, OTPResetPassword, OTPResetPin:
		return true
	}
	return false
}

type Role string

const (
	RoleUser     Role = "USER"
	RoleMerchant Role = "MERCHANT"
	RoleAgent    Role = "AGENT"
	RoleBusiness Role = "BUSINESS"
)

type User struct {
	ID           string  `db:"id" json:"id"`
	Username     string  `db:"username" json:"username"`
	Email        string  `db:"email" json:"email"`
	Phone        *string `db:"phone" json:"phone,omitempty"`
	PasswordHash string  `db:"password_hash" json:"-"`
	Role         Role    `db:"role" json:"role"`
	BusinessID   *string `db:"business_id" json:"business_id,omitempty"`
	BankAccount  *string `db:"bank_account_id" json:"bank_account_id,omitempty"`
}

type Business struct {
	ID                   string  `db:"id" json:"id"`
	Name                 string  `db:"name" json:"name"`
	ServiceFeePercentage string  `db:"service_fee_percentage" json:"service_fee_percentage"`
	BankAccountID        *string `db:"bank_account_id" json:"bank_account_id,omitempty"`
}

type Station struct {
	ID            string `db:"id" json:"id"`
	BusinessID    string `db:"business_id" json:"business_id"`
	Name          string `db:"name" json:"name"`
	AmountIsFixed bool   `db:"amount_is_fixed" json:"amount_is_fixed"`
	Amount        int64  `db:"amount" json:"amount"`
	DailyBalance  int64  `db:"daily_balance" json:"daily_balance"`
}

type Wallet struct {
	ID                          string     `db:"id" json:"id"`
	UserID                      *string    `db:"user_id" json:"user_id,omitempty"`
	BusinessID                  *string    `db:"business_id" json:"business_id,omitempty"`
	Balance                     int64      `db:"balance" json:"balance"`
	TotalTransactionAmountToday int64      `db:"total_transaction_amount_today" json:"total_transaction_amount_today"`
	LatestTransactionTimestamp  *time.Time `db:"latest_transaction_timestamp" json:"latest_transaction_timestamp,omitempty"`
}

// OwnerID is the user id for personal wallets and the business id otherwise.
func (w Wallet) OwnerID() string {
	if w.UserID != nil {
		return *w.UserID
	}
	if w.BusinessID != nil {
		return *w.BusinessID
	}
	return ""
}

type Card struct {
	ID            string  `db:"id" json:"id"`
	NFCCardNumber string  `db:"nfc_card_number" json:"nfc_card_number"`
	Hash          string  `db:"hash" json:"-"`
	UserID        *string `db:"user_id" json:"user_id,omitempty"`
	WalletID      *string `db:"wallet_id" json:"wallet_id,omitempty"`
	Name          *string `db:"name" json:"name,omitempty"`
	Active        bool    `db:"active" json:"active"`
	Balance       *int64  `db:"balance" json:"balance,omitempty"`
	CreatedByID   string  `db:"created_by_id" json:"created_by_id"`
}

// Bound reports whether the card is attached to a cardholder and wallet.
func (c Card) Bound() bool {
	return c.UserID != nil && c.WalletID != nil
}

type Transaction struct {
	ID                   string            `db:"id" json:"id"`
	TransactionReference string            `db:"transaction_reference" json:"transaction_reference"`
	Type                 TransactionType   `db:"type" json:"type"`
	Status               TransactionStatus `db:"status" json:"status"`
	Amount               int64             `db:"amount" json:"amount"`
	Fee                  *int64            `db:"fee" json:"fee,omitempty"`
	Processor            *Processor        `db:"processor" json:"processor,omitempty"`
	ProcessorStatus      *string           `db:"processor_status" json:"processor_status,omitempty"`
	ProcessorTrxID       *string           `db:"processor_trx_id" json:"processor_trx_id,omitempty"`
	WalletID             *string           `db:"wallet_id" json:"wallet_id,omitempty"`
	CardID               *string           `db:"card_id" json:"card_id,omitempty"`
	CreatedByID          *string           `db:"created_by_id" json:"created_by_id,omitempty"`
	RecipientID          *string           `db:"recipient_id" json:"recipient_id,omitempty"`
	BusinessID           *string           `db:"business_id" json:"business_id,omitempty"`
	StationID            *string           `db:"station_id" json:"station_id,omitempty"`
	Narration            *string           `db:"narration" json:"narration,omitempty"`
	CreatedAt            time.Time         `db:"created_at" json:"created_at"`
}

type VerificationCode struct {
	IdentityID      string     `db:"identity_id"`
	Code            string     `db:"code"`
	Purpose         OTPPurpose `db:"purpose"`
	BoundIdentifier string     `db:"bound_identifier"`
	ExpiresAt       time.Time  `db:"expires_at"`
}

type Bank struct {
	ID   string  `db:"id" json:"id"`
	Name string  `db:"name" json:"name"`
	Code string  `db:"code" json:"code"`
	Slug string  `db:"slug" json:"slug"`
	USSD *string `db:"ussd" json:"ussd,omitempty"`
}

type BankAccount struct {
	ID       string `db:"id" json:"id"`
	Number   string `db:"number" json:"number"`
	Name     string `db:"name" json:"name"`
	BankCode string `db:"bank_code" json:"bank_code"`
	BankName string `db:"bank_name" json:"bank_name"`
}

func StringPtr(value string) *string {
	return &value
}
