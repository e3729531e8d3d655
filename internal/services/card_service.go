package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"starkpay/internal/apperr"
	"starkpay/internal/auth"
	"starkpay/internal/cardsecret"
	"starkpay/internal/db"
	"starkpay/internal/models"
	"starkpay/internal/otp"
	"starkpay/internal/store"
)

const msgNotYourCard = "You are not allowed to perform this action"

type CardService struct {
	txRunner db.TxRunner
	cards    CardStore
	history  CardHistoryStore
	wallets  WalletStore
	users    UserStore
	audit    AuditStore
	otp      OTPVerifier
}

func NewCardService(txRunner db.TxRunner, cards CardStore, history CardHistoryStore, wallets WalletStore, users UserStore, audit AuditStore, verifier OTPVerifier) *CardService {
	return &CardService{
		txRunner: txRunner,
		cards:    cards,
		history:  history,
		wallets:  wallets,
		users:    users,
		audit:    audit,
		otp:      verifier,
	}
}

// IssuedCard is returned once at creation. Secret is never stored in clear
// and cannot be recovered later.
type IssuedCard struct {
	ID            string `json:"id"`
	NFCCardNumber string `json:"nfc_card_number"`
	Secret        string `json:"secret"`
}

func (s *CardService) Create(ctx context.Context, actorID string) (IssuedCard, error) {
	secret, hash, err := cardsecret.New()
	if err != nil {
		return IssuedCard{}, apperr.Wrap(apperr.KindServiceUnavailable, "There was a problem adding the card", err)
	}
	var card models.Card
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		card, err = s.cards.Create(ctx, tx, uuid.NewString(), hash, actorID)
		if err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, actorID, "card.create", "card", card.ID, map[string]string{"nfc_card_number": card.NFCCardNumber})
	})
	if err != nil {
		return IssuedCard{}, apperr.FromStore(err, "There was a problem adding the card")
	}
	return IssuedCard{ID: card.ID, NFCCardNumber: card.NFCCardNumber, Secret: secret}, nil
}

type AttachCardRequest struct {
	ActorID       string
	UserID        string
	NFCCardNumber string
	WalletID      *string
	Name          *string
	Pin           *string
}

// Attach binds an unbound card to the user and one of their wallets, the
// first one when WalletID is nil.
func (s *CardService) Attach(ctx context.Context, req AttachCardRequest) (models.Card, error) {
	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return models.Card{}, notFoundOr(err, "User not found")
	}
	if req.Pin != nil && !auth.CheckPassword(user.PasswordHash, *req.Pin) {
		return models.Card{}, apperr.Forbidden("Incorrect pin")
	}
	return s.attach(ctx, req.ActorID, user, req.NFCCardNumber, req.WalletID, req.Name)
}

func (s *CardService) attach(ctx context.Context, actorID string, user models.User, number string, walletID, name *string) (models.Card, error) {
	wallet, err := s.targetWallet(ctx, user.ID, walletID)
	if err != nil {
		return models.Card{}, err
	}
	card, err := s.cards.GetByNumber(ctx, number)
	if err != nil {
		return models.Card{}, notFoundOr(err, "Card not found")
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.cards.Attach(ctx, tx, card.ID, user.ID, wallet.ID, name)
		if err != nil {
			return err
		}
		if rows == 0 {
			return apperr.New(apperr.KindConflict, "This card is already attached")
		}
		return s.record(ctx, tx, actorID, card.ID, models.CardAttach)
	})
	if err != nil {
		return models.Card{}, apperr.FromStore(err, "There was a problem adding the card")
	}
	card.UserID = &user.ID
	card.WalletID = &wallet.ID
	card.Name = name
	card.Active = true
	return card, nil
}

func (s *CardService) targetWallet(ctx context.Context, userID string, walletID *string) (models.Wallet, error) {
	if walletID == nil {
		wallet, err := s.wallets.GetByUser(ctx, userID)
		return wallet, notFoundOr(err, "Wallet not found")
	}
	wallet, err := s.wallets.GetByID(ctx, *walletID)
	if err != nil {
		return models.Wallet{}, notFoundOr(err, "Wallet not found")
	}
	if wallet.UserID == nil || *wallet.UserID != userID {
		return models.Wallet{}, apperr.Forbidden(msgNotYourCard)
	}
	return wallet, nil
}

// Detach unbinds the card from its holder and clears its name and balance.
func (s *CardService) Detach(ctx context.Context, userID, cardID string) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		card, err := s.cards.GetForUpdate(ctx, tx, cardID)
		if err != nil {
			return notFoundOr(err, "Card not found")
		}
		if card.UserID == nil || *card.UserID != userID {
			return apperr.Forbidden(msgNotYourCard)
		}
		if _, err := s.cards.Detach(ctx, tx, card.ID); err != nil {
			return err
		}
		return s.record(ctx, tx, userID, card.ID, models.CardDetach)
	})
	return apperr.FromStore(err, "There was a problem removing the card")
}

type UpdateCardRequest struct {
	UserID        string
	NFCCardNumber string
	Name          *string
	Active        *bool
	Pin           *string
}

func (s *CardService) Update(ctx context.Context, req UpdateCardRequest) (models.Card, error) {
	if req.Pin != nil {
		user, err := s.users.GetByID(ctx, req.UserID)
		if err != nil {
			return models.Card{}, notFoundOr(err, "User not found")
		}
		if !auth.CheckPassword(user.PasswordHash, *req.Pin) {
			return models.Card{}, apperr.Forbidden("Incorrect pin")
		}
	}
	found, err := s.cards.GetByNumber(ctx, req.NFCCardNumber)
	if err != nil {
		return models.Card{}, notFoundOr(err, "Card not found")
	}
	var card models.Card
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		locked, err := s.cards.GetForUpdate(ctx, tx, found.ID)
		if err != nil {
			return notFoundOr(err, "Card not found")
		}
		if locked.UserID == nil || *locked.UserID != req.UserID {
			return apperr.Forbidden("You are not allowed to update this card")
		}
		rows, err := s.cards.Update(ctx, tx, locked.ID, req.Name, req.Active)
		if err != nil {
			return err
		}
		if rows == 0 {
			return apperr.NotFound("Card not found")
		}
		card = locked
		if req.Active == nil {
			return nil
		}
		action := models.CardDisable
		if *req.Active {
			action = models.CardEnable
		}
		return s.record(ctx, tx, req.UserID, locked.ID, action)
	})
	if err != nil {
		return models.Card{}, apperr.FromStore(err, "There was a problem updating the card")
	}
	if req.Name != nil {
		card.Name = req.Name
	}
	if req.Active != nil {
		card.Active = *req.Active
	}
	return card, nil
}

// Delete soft-deletes the card. Its holder or the agent who issued it may do so.
func (s *CardService) Delete(ctx context.Context, actorID, cardID string) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		card, err := s.cards.GetForUpdate(ctx, tx, cardID)
		if err != nil {
			return notFoundOr(err, "Card not found")
		}
		holder := card.UserID != nil && *card.UserID == actorID
		if !holder && card.CreatedByID != actorID {
			return apperr.Forbidden(msgNotYourCard)
		}
		if _, err := s.cards.Delete(ctx, tx, card.ID); err != nil {
			return err
		}
		return s.record(ctx, tx, actorID, card.ID, models.CardDelete)
	})
	return apperr.FromStore(err, "There was a problem deleting the card")
}

type AgentAttachRequest struct {
	AgentID        string
	OTP            string
	UserIdentifier string
	NFCCardNumber  string
	WalletID       *string
	Name           *string
}

// AgentAttach attaches a card for a customer who proved presence with an
// ADD_CARD code sent to their email.
func (s *CardService) AgentAttach(ctx context.Context, req AgentAttachRequest) (models.Card, error) {
	user, err := resolveUser(ctx, s.users, req.UserIdentifier)
	if err != nil {
		return models.Card{}, err
	}
	identity, err := s.otp.Verify(ctx, req.OTP, models.OTPAddCard, user.Email)
	if err != nil {
		return models.Card{}, err
	}
	if identity != user.ID {
		return models.Card{}, otp.ErrInvalid
	}
	return s.attach(ctx, req.AgentID, user, req.NFCCardNumber, req.WalletID, req.Name)
}

type AgentDisableRequest struct {
	AgentID       string
	OTP           string
	NFCCardNumber string
}

func (s *CardService) AgentDisable(ctx context.Context, req AgentDisableRequest) error {
	identity, err := s.otp.Verify(ctx, req.OTP, models.OTPDisableCard, "")
	if err != nil {
		return err
	}
	card, err := s.cards.GetByNumber(ctx, req.NFCCardNumber)
	if err != nil {
		return notFoundOr(err, "Invalid card number")
	}
	if card.UserID == nil || *card.UserID != identity {
		return apperr.Validation("Invalid card number")
	}
	inactive := false
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.cards.Update(ctx, tx, card.ID, nil, &inactive); err != nil {
			return err
		}
		return s.record(ctx, tx, req.AgentID, card.ID, models.CardDisable)
	})
	return apperr.FromStore(err, "Failed to disable card")
}

func (s *CardService) ListByUser(ctx context.Context, userID string) ([]models.Card, error) {
	cards, err := s.cards.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindServiceUnavailable, "There was a problem fetching the cards", err)
	}
	return cards, nil
}

// History lists a card's lifecycle entries for its holder.
func (s *CardService) History(ctx context.Context, userID, cardID string) ([]store.CardHistoryEntry, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, notFoundOr(err, "Card not found")
	}
	if card.UserID == nil || *card.UserID != userID {
		return nil, apperr.Forbidden(msgNotYourCard)
	}
	entries, err := s.history.ListByCard(ctx, cardID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindServiceUnavailable, "There was a problem fetching the card", err)
	}
	return entries, nil
}

func (s *CardService) record(ctx context.Context, tx store.Execer, actorID, cardID string, action models.CardAction) error {
	if err := s.history.Append(ctx, tx, uuid.NewString(), cardID, actorID, action); err != nil {
		return err
	}
	return s.audit.Log(ctx, tx, actorID, "card."+strings.ToLower(string(action)), "card", cardID, nil)
}
