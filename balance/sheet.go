package balance

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/types"
)

var (
	ErrIssuanceRevoked     = errors.New("balance: issuance is revoked")
	ErrInsufficientBalance = errors.New("balance: insufficient balance")
	ErrSelfRecall          = errors.New("balance: holder and recall right must differ")
	ErrOverflow            = errors.New("balance: amount overflow")
)

type key struct {
	holder      types.Address
	recallRight types.Address
}

// Sheet stages balance mutations for one issuance on top of committed
// state. Nothing is written until the caller commits Changes. Every
// operation validates before it mutates, so a failed call leaves the sheet
// as it was.
type Sheet struct {
	ctx      context.Context
	reader   Reader
	ledgerID id.LedgerID
	issuance uint64
	revoked  bool

	balances map[key]uint64
	temps    map[types.Address]uint64

	dirty     []key
	dirtyKeys map[key]bool
	dirtyTemp []types.Address
	tempKeys  map[types.Address]bool

	witnesses   []Witness
	witnessKeys map[key]bool
	relevant    []Relevance
	relevantFor map[types.Address]bool
}

// NewSheet returns a sheet over issuance index of ledgerID.
func NewSheet(ctx context.Context, r Reader, ledgerID id.LedgerID, index uint64, revoked bool) *Sheet {
	return &Sheet{
		ctx:         ctx,
		reader:      r,
		ledgerID:    ledgerID,
		issuance:    index,
		revoked:     revoked,
		balances:    make(map[key]uint64),
		temps:       make(map[types.Address]uint64),
		dirtyKeys:   make(map[key]bool),
		tempKeys:    make(map[types.Address]bool),
		witnessKeys: make(map[key]bool),
		relevantFor: make(map[types.Address]bool),
	}
}

// Seed credits the full supply of a new issuance to owner as proper
// ownership.
func (s *Sheet) Seed(owner types.Address, supply uint64) error {
	if s.revoked {
		return s.revokedErr()
	}
	cur, err := s.Balance(owner, owner)
	if err != nil {
		return err
	}
	next, err := types.CheckedAdd(cur, supply)
	if err != nil {
		return fmt.Errorf("%w: seeding %d", ErrOverflow, supply)
	}
	s.setBalance(owner, owner, next)
	s.markRelevant(owner)
	return nil
}

// Transfer moves amount units of from's proper ownership to to's proper
// ownership. Self-transfers and zero amounts succeed without changing
// balances.
func (s *Sheet) Transfer(from, to types.Address, amount uint64) error {
	if s.revoked {
		return s.revokedErr()
	}
	fromBal, err := s.Balance(from, from)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return s.insufficient(from, from, fromBal, amount)
	}
	if from == to || amount == 0 {
		return nil
	}
	toBal, err := s.Balance(to, to)
	if err != nil {
		return err
	}
	toNext, err := types.CheckedAdd(toBal, amount)
	if err != nil {
		return fmt.Errorf("%w: crediting %s", ErrOverflow, to.Hex())
	}

	s.setBalance(from, from, fromBal-amount)
	s.setBalance(to, to, toNext)
	s.markRelevant(to)
	return nil
}

// TransferWithRecallRight moves amount units of from's proper ownership to
// to, keeping from's right to recall them. seq orders the witness entry.
func (s *Sheet) TransferWithRecallRight(from, to types.Address, amount, seq uint64) error {
	if s.revoked {
		return s.revokedErr()
	}
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfRecall, from.Hex())
	}
	fromBal, err := s.Balance(from, from)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return s.insufficient(from, from, fromBal, amount)
	}
	held, err := s.Balance(to, from)
	if err != nil {
		return err
	}
	temp, err := s.Temporary(to)
	if err != nil {
		return err
	}
	heldNext, err := types.CheckedAdd(held, amount)
	if err != nil {
		return fmt.Errorf("%w: crediting %s", ErrOverflow, to.Hex())
	}
	tempNext, err := types.CheckedAdd(temp, amount)
	if err != nil {
		return fmt.Errorf("%w: crediting %s", ErrOverflow, to.Hex())
	}

	s.setBalance(from, from, fromBal-amount)
	s.setBalance(to, from, heldNext)
	s.setTemporary(to, tempNext)
	s.addWitness(from, to, seq)
	if amount > 0 {
		s.markRelevant(to)
	}
	return nil
}

// Recall returns amount units that holder holds under recaller's right to
// recaller's proper ownership.
func (s *Sheet) Recall(holder, recaller types.Address, amount uint64) error {
	if s.revoked {
		return s.revokedErr()
	}
	if holder == recaller {
		return fmt.Errorf("%w: %s", ErrSelfRecall, holder.Hex())
	}
	held, err := s.Balance(holder, recaller)
	if err != nil {
		return err
	}
	if held < amount {
		return s.insufficient(holder, recaller, held, amount)
	}
	temp, err := s.Temporary(holder)
	if err != nil {
		return err
	}
	tempNext, err := types.CheckedSub(temp, amount)
	if err != nil {
		return fmt.Errorf("%w: recallable cache of %s below %d", ErrInsufficientBalance, holder.Hex(), amount)
	}
	own, err := s.Balance(recaller, recaller)
	if err != nil {
		return err
	}
	ownNext, err := types.CheckedAdd(own, amount)
	if err != nil {
		return fmt.Errorf("%w: crediting %s", ErrOverflow, recaller.Hex())
	}

	s.setBalance(holder, recaller, held-amount)
	s.setTemporary(holder, tempNext)
	s.setBalance(recaller, recaller, ownNext)
	return nil
}

// Balance returns the staged amount holder holds under recallRight.
func (s *Sheet) Balance(holder, recallRight types.Address) (uint64, error) {
	k := key{holder, recallRight}
	if v, ok := s.balances[k]; ok {
		return v, nil
	}
	v, err := s.reader.Balance(s.ctx, s.ledgerID, s.issuance, holder, recallRight)
	if err != nil {
		return 0, err
	}
	s.balances[k] = v
	return v, nil
}

// Temporary returns the staged recallable total of holder.
func (s *Sheet) Temporary(holder types.Address) (uint64, error) {
	if v, ok := s.temps[holder]; ok {
		return v, nil
	}
	v, err := s.reader.TemporaryBalance(s.ctx, s.ledgerID, s.issuance, holder)
	if err != nil {
		return 0, err
	}
	s.temps[holder] = v
	return v, nil
}

// TotalOwned returns proper plus recallable units of holder.
func (s *Sheet) TotalOwned(holder types.Address) (uint64, error) {
	own, err := s.Balance(holder, holder)
	if err != nil {
		return 0, err
	}
	temp, err := s.Temporary(holder)
	if err != nil {
		return 0, err
	}
	return own + temp, nil
}

// Changes returns the staged writes in the order they were first touched.
func (s *Sheet) Changes() Changes {
	var c Changes
	for _, k := range s.dirty {
		c.Balances = append(c.Balances, Entry{
			LedgerID:    s.ledgerID,
			Issuance:    s.issuance,
			Holder:      k.holder,
			RecallRight: k.recallRight,
			Amount:      s.balances[k],
		})
	}
	for _, h := range s.dirtyTemp {
		c.Temporaries = append(c.Temporaries, Temporary{
			LedgerID: s.ledgerID,
			Issuance: s.issuance,
			Holder:   h,
			Amount:   s.temps[h],
		})
	}
	c.Witnesses = append(c.Witnesses, s.witnesses...)
	c.Relevance = append(c.Relevance, s.relevant...)
	return c
}

func (s *Sheet) setBalance(holder, recallRight types.Address, v uint64) {
	k := key{holder, recallRight}
	if !s.dirtyKeys[k] {
		s.dirtyKeys[k] = true
		s.dirty = append(s.dirty, k)
	}
	s.balances[k] = v
}

func (s *Sheet) setTemporary(holder types.Address, v uint64) {
	if !s.tempKeys[holder] {
		s.tempKeys[holder] = true
		s.dirtyTemp = append(s.dirtyTemp, holder)
	}
	s.temps[holder] = v
}

func (s *Sheet) addWitness(owner, holder types.Address, seq uint64) {
	k := key{owner, holder}
	if s.witnessKeys[k] {
		return
	}
	s.witnessKeys[k] = true
	s.witnesses = append(s.witnesses, Witness{
		LedgerID: s.ledgerID,
		Issuance: s.issuance,
		Owner:    owner,
		Holder:   holder,
		Seq:      seq,
	})
}

func (s *Sheet) markRelevant(holder types.Address) {
	if s.relevantFor[holder] {
		return
	}
	s.relevantFor[holder] = true
	s.relevant = append(s.relevant, Relevance{
		LedgerID: s.ledgerID,
		Holder:   holder,
		Issuance: s.issuance,
	})
}

func (s *Sheet) revokedErr() error {
	return fmt.Errorf("%w: issuance %d", ErrIssuanceRevoked, s.issuance)
}

func (s *Sheet) insufficient(holder, recallRight types.Address, have, want uint64) error {
	return fmt.Errorf("%w: %s holds %d under %s, needs %d",
		ErrInsufficientBalance, holder.Hex(), have, recallRight.Hex(), want)
}
