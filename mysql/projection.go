package mysql

import (
	"github.com/dark-cli/deptmaster"
)

// ProjectionStore keeps the folded wallet state in relational tables, one
// row per contact or transaction. Save replaces the wallet's rows wholesale
// so the tables always mirror exactly one fold of the log.
type ProjectionStore struct {
	driver *Driver
}

func NewProjectionStore(driver *Driver) *ProjectionStore {
	store := &ProjectionStore{
		driver: driver,
	}
	return store
}

func (s *ProjectionStore) Save(p *deptmaster.Projection) error {
	tx := s.driver.db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	if err := tx.Where("wallet_id = ?", p.WalletID).Delete(Contact{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Where("wallet_id = ?", p.WalletID).Delete(Transaction{}).Error; err != nil {
		tx.Rollback()
		return err
	}

	for _, contact := range p.Contacts {
		row := newContact(*contact)
		if err := tx.Create(&row).Error; err != nil {
			tx.Rollback()
			return err
		}
	}
	for _, transaction := range p.Transactions {
		row := newTransaction(*transaction)
		if err := tx.Create(&row).Error; err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit().Error
}

func (s *ProjectionStore) Load(walletID string) (*deptmaster.Projection, error) {
	var dbContacts []Contact
	err := s.driver.db.
		Where("wallet_id = ?", walletID).
		Find(&dbContacts).
		Error
	if err != nil {
		return nil, err
	}

	var dbTransactions []Transaction
	err = s.driver.db.
		Where("wallet_id = ?", walletID).
		Find(&dbTransactions).
		Error
	if err != nil {
		return nil, err
	}

	p := deptmaster.NewProjection(walletID)
	for _, row := range dbContacts {
		p.Contacts[row.ID] = row.format()
	}
	for _, row := range dbTransactions {
		p.Transactions[row.ID] = row.format()
	}
	return p, nil
}

func (s *ProjectionStore) Delete(walletID string) error {
	tx := s.driver.db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	if err := tx.Where("wallet_id = ?", walletID).Delete(Contact{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Where("wallet_id = ?", walletID).Delete(Transaction{}).Error; err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
