package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dark-cli/deptmaster"
	"github.com/dark-cli/deptmaster/auth"
	"github.com/dark-cli/deptmaster/errors"
)

type WalletService struct {
	repository      auth.WalletRepository
	userRepository  auth.UserRepository
	groupRepository auth.GroupRepository
}

func NewWalletService(repo auth.WalletRepository, userRepo auth.UserRepository, groupRepo auth.GroupRepository) *WalletService {
	return &WalletService{
		repository:      repo,
		userRepository:  userRepo,
		groupRepository: groupRepo,
	}
}

func (s *WalletService) Get(callerID, walletID string) (auth.Wallet, error) {
	wallet, err := s.repository.Get(walletID)
	if err != nil {
		return auth.Wallet{}, err
	}

	if wallet.ID == "" {
		return auth.Wallet{}, errWalletNotFound(walletID)
	}

	// Non-members get a 404, not a 403: they should not learn the wallet exists.
	if _, ok := wallet.Member(callerID); !ok {
		return auth.Wallet{}, errWalletNotFound(walletID)
	}

	return wallet, nil
}

func (s *WalletService) GetForUser(callerID string) ([]auth.Wallet, error) {
	return s.repository.GetForUser(callerID)
}

// Create opens a new wallet owned by the caller. The implicit all-members
// and all-contacts groups are created alongside it.
func (s *WalletService) Create(callerID, name string) (auth.Wallet, error) {
	user, err := s.userRepository.Get(callerID)
	if err != nil {
		return auth.Wallet{}, err
	} else if user.ID == "" {
		return auth.Wallet{}, errUserNotFound(callerID)
	}

	now := time.Now().UTC()
	wallet := auth.Wallet{
		ID:      uuid.NewString(),
		Name:    name,
		OwnerID: callerID,
		Members: []auth.WalletMember{
			{UserID: callerID, Name: user.Name, Email: user.Email, IsOwner: true, JoinedAt: now},
		},
		CreatedAt: now,
	}

	if err := s.repository.Upsert(&wallet); err != nil {
		return auth.Wallet{}, err
	}

	implicit := []auth.Group{
		{ID: uuid.NewString(), WalletID: wallet.ID, Name: deptmaster.AllMembersGroup, Kind: auth.GroupOfMembers, Implicit: true},
		{ID: uuid.NewString(), WalletID: wallet.ID, Name: deptmaster.AllContactsGroup, Kind: auth.GroupOfContacts, Implicit: true},
	}
	for i := range implicit {
		if err := s.groupRepository.Upsert(&implicit[i]); err != nil {
			return auth.Wallet{}, err
		}
	}

	return wallet, nil
}

func (s *WalletService) Invite(callerID, walletID, memberEmail string) (auth.Wallet, error) {
	wallet, err := s.Get(callerID, walletID)
	if err != nil {
		return auth.Wallet{}, err
	}

	if wallet.OwnerID != callerID {
		return auth.Wallet{}, errNotWalletOwner(walletID)
	}

	user, err := s.userRepository.GetByEmail(memberEmail)
	if err != nil {
		return auth.Wallet{}, err
	} else if user.ID == "" {
		return auth.Wallet{}, errors.New(fmt.Sprintf("no user found for email %s", memberEmail), errors.NotFound())
	}

	if _, ok := wallet.Member(user.ID); ok {
		return wallet, nil
	}

	wallet.Members = append(wallet.Members, auth.WalletMember{
		UserID:   user.ID,
		Name:     user.Name,
		Email:    user.Email,
		JoinedAt: time.Now().UTC(),
	})
	if err := s.repository.Upsert(&wallet); err != nil {
		return auth.Wallet{}, err
	}

	return wallet, nil
}

// Kick removes a member. Members may leave on their own, the owner may
// remove anyone but themselves.
func (s *WalletService) Kick(callerID, walletID, memberID string) (auth.Wallet, error) {
	wallet, err := s.Get(callerID, walletID)
	if err != nil {
		return auth.Wallet{}, err
	}

	if callerID != memberID && wallet.OwnerID != callerID {
		return auth.Wallet{}, errNotWalletOwner(walletID)
	}

	index := -1
	for i, member := range wallet.Members {
		if member.UserID == memberID {
			if member.IsOwner {
				return auth.Wallet{}, errors.New("cannot remove the wallet owner", errors.BadRequest())
			}
			index = i
			break
		}
	}

	if index == -1 {
		return auth.Wallet{}, errors.New(fmt.Sprintf("user %s is not a member of wallet %s", memberID, walletID), errors.NotFound())
	}
	wallet.Members = append(wallet.Members[0:index], wallet.Members[index+1:]...)

	if err := s.repository.Upsert(&wallet); err != nil {
		return auth.Wallet{}, err
	}

	return wallet, nil
}

func (s *WalletService) Delete(callerID, walletID string) error {
	wallet, err := s.Get(callerID, walletID)
	if err != nil {
		return err
	}

	if wallet.OwnerID != callerID {
		return errNotWalletOwner(walletID)
	}

	groups, err := s.groupRepository.ListByWallet(walletID)
	if err != nil {
		return err
	}
	for _, group := range groups {
		if err := s.groupRepository.Delete(group.ID); err != nil {
			return err
		}
	}

	return s.repository.Delete(wallet.ID)
}
