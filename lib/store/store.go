// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/bureau-foundation/ap2/lib/audit"
	"github.com/bureau-foundation/ap2/lib/clock"
	"github.com/bureau-foundation/ap2/lib/mandate"
)

// Store holds all process-lifetime state.
type Store struct {
	clock clock.Clock

	mu               sync.RWMutex
	intents          map[string]mandate.IntentMandate
	carts            map[string]mandate.CartMandate
	payments         map[string]mandate.PaymentMandate
	receipts         map[string]mandate.PaymentReceipt
	profile          *mandate.CustomerProfile
	activeSettlement string
	log              *audit.Log
}

// Counts summarizes the store for status queries.
type Counts struct {
	Intents            int    `cbor:"intents" json:"intents"`
	Carts              int    `cbor:"carts" json:"carts"`
	Payments           int    `cbor:"payments" json:"payments"`
	Receipts           int    `cbor:"receipts" json:"receipts"`
	AuditEntries       int    `cbor:"auditEntries" json:"auditEntries"`
	ActiveSettlementID string `cbor:"activeSettlementId,omitempty" json:"activeSettlementId,omitempty"`
	HasProfile         bool   `cbor:"hasProfile" json:"hasProfile"`
}

// New returns an empty store whose audit log is stamped by clk.
func New(clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.Real()
	}
	s := &Store{clock: clk, log: audit.New(clk)}
	s.clearLocked()
	return s
}

func (s *Store) clearLocked() {
	s.intents = make(map[string]mandate.IntentMandate)
	s.carts = make(map[string]mandate.CartMandate)
	s.payments = make(map[string]mandate.PaymentMandate)
	s.receipts = make(map[string]mandate.PaymentReceipt)
	s.profile = nil
	s.activeSettlement = ""
	s.log.Reset()
}

// newIDLocked returns prefix+uuid, unique across exists.
func newIDLocked(prefix string, exists func(string) bool) string {
	for {
		id := prefix + uuid.NewString()
		if !exists(id) {
			return id
		}
	}
}

// AddIntent generates an intent id, passes it to build, and stores the
// result under that id. build runs under the store's write lock and
// must not call back into the store.
func (s *Store) AddIntent(build func(id string) (mandate.IntentMandate, error)) (mandate.IntentMandate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := newIDLocked(mandate.IntentPrefix, func(id string) bool { _, ok := s.intents[id]; return ok })
	intent, err := build(id)
	if err != nil {
		return mandate.IntentMandate{}, err
	}
	intent.ID = id
	s.intents[id] = intent
	return intent, nil
}

// AddCart is AddIntent for carts.
func (s *Store) AddCart(build func(id string) (mandate.CartMandate, error)) (mandate.CartMandate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := newIDLocked(mandate.CartPrefix, func(id string) bool { _, ok := s.carts[id]; return ok })
	cart, err := build(id)
	if err != nil {
		return mandate.CartMandate{}, err
	}
	cart.ID = id
	cart = cart.Clone()
	s.carts[id] = cart
	return cart.Clone(), nil
}

// AddPayment is AddIntent for payment mandates.
func (s *Store) AddPayment(build func(id string) (mandate.PaymentMandate, error)) (mandate.PaymentMandate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := newIDLocked(mandate.PaymentPrefix, func(id string) bool { _, ok := s.payments[id]; return ok })
	payment, err := build(id)
	if err != nil {
		return mandate.PaymentMandate{}, err
	}
	payment.ID = id
	s.payments[id] = payment
	return payment, nil
}

// Intent looks up an intent mandate.
func (s *Store) Intent(id string) (mandate.IntentMandate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	intent, ok := s.intents[id]
	return intent, ok
}

// Cart looks up a cart mandate.
func (s *Store) Cart(id string) (mandate.CartMandate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cart, ok := s.carts[id]
	if !ok {
		return mandate.CartMandate{}, false
	}
	return cart.Clone(), true
}

// Payment looks up a payment mandate.
func (s *Store) Payment(id string) (mandate.PaymentMandate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payment, ok := s.payments[id]
	return payment, ok
}

// ReplaceIntent overwrites an existing intent. Mandates are otherwise
// immutable; integrity drills use this to simulate corruption between
// creation and validation. Reports false if no such intent exists.
func (s *Store) ReplaceIntent(intent mandate.IntentMandate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.intents[intent.ID]; !ok {
		return false
	}
	s.intents[intent.ID] = intent
	return true
}

// ReplaceCart overwrites an existing cart. See ReplaceIntent.
func (s *Store) ReplaceCart(cart mandate.CartMandate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[cart.ID]; !ok {
		return false
	}
	s.carts[cart.ID] = cart.Clone()
	return true
}

// ReplacePayment overwrites an existing payment mandate. See
// ReplaceIntent.
func (s *Store) ReplacePayment(payment mandate.PaymentMandate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[payment.ID]; !ok {
		return false
	}
	s.payments[payment.ID] = payment
	return true
}

// Audit appends an entry to the audit log.
func (s *Store) Audit(agent, action, details, mandateID string) mandate.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.Append(agent, action, details, mandateID)
}

// AuditFor returns the entries tagged with any of ids, in insertion
// order.
func (s *Store) AuditFor(ids ...string) []mandate.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.ForMandates(ids...)
}

// AuditSnapshot returns the whole audit log.
func (s *Store) AuditSnapshot() []mandate.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.Snapshot()
}

// PutReceipt stores (or replaces) the receipt for receipt.MandateID.
func (s *Store) PutReceipt(receipt mandate.PaymentReceipt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts[receipt.MandateID] = receipt.Clone()
}

// Receipt returns the receipt for a payment mandate.
func (s *Store) Receipt(paymentMandateID string) (mandate.PaymentReceipt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	receipt, ok := s.receipts[paymentMandateID]
	if !ok {
		return mandate.PaymentReceipt{}, false
	}
	return receipt.Clone(), true
}

// ReceiptForSettlement returns the receipt that references
// settlementID.
func (s *Store) ReceiptForSettlement(settlementID string) (mandate.PaymentReceipt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, receipt := range s.receipts {
		if receipt.SettlementID == settlementID {
			return receipt.Clone(), true
		}
	}
	return mandate.PaymentReceipt{}, false
}

// UpdateReceiptStatus sets the status of the receipt for
// settlementID. Reports false when no receipt references it.
func (s *Store) UpdateReceiptStatus(settlementID string, status mandate.ReceiptStatus) (mandate.PaymentReceipt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, receipt := range s.receipts {
		if receipt.SettlementID == settlementID {
			receipt.Status = status
			s.receipts[key] = receipt
			return receipt.Clone(), true
		}
	}
	return mandate.PaymentReceipt{}, false
}

// Profile returns the customer profile, if one exists.
func (s *Store) Profile() (mandate.CustomerProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return mandate.CustomerProfile{}, false
	}
	return *s.profile, true
}

// UpdateProfile applies update to the profile under the write lock.
// exists is false when no profile has been stored yet; profile then
// points at a zero value. If update returns an error nothing is
// stored. UpdatedAt is stamped on success.
func (s *Store) UpdateProfile(update func(profile *mandate.CustomerProfile, exists bool) error) (mandate.CustomerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var working mandate.CustomerProfile
	exists := s.profile != nil
	if exists {
		working = *s.profile
	}
	if err := update(&working, exists); err != nil {
		return mandate.CustomerProfile{}, err
	}
	now := s.clock.Now()
	if !exists {
		working.CreatedAt = now
	}
	working.UpdatedAt = now
	s.profile = &working
	return working, nil
}

// SetActiveSettlement records the settlement the kill switch targets.
func (s *Store) SetActiveSettlement(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeSettlement = id
}

// ActiveSettlement returns the tracked settlement id, or "".
func (s *Store) ActiveSettlement() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeSettlement
}

// TakeActiveSettlement returns the tracked id and clears it in one
// step.
func (s *Store) TakeActiveSettlement() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.activeSettlement
	s.activeSettlement = ""
	return id
}

// ClearActiveSettlement clears the tracked id only if it equals id.
func (s *Store) ClearActiveSettlement(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeSettlement == "" || s.activeSettlement != id {
		return false
	}
	s.activeSettlement = ""
	return true
}

// Reset clears every record and the audit log atomically.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// Status returns current counts.
func (s *Store) Status() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Intents:            len(s.intents),
		Carts:              len(s.carts),
		Payments:           len(s.payments),
		Receipts:           len(s.receipts),
		AuditEntries:       s.log.Len(),
		ActiveSettlementID: s.activeSettlement,
		HasProfile:         s.profile != nil,
	}
}
