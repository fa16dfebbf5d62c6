// Package session implements the guest-side cart store: a JSON-serialized
// line array under one key in a session-scoped key-value store.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vastramart/cartengine/internal/domain"
	"golang.org/x/text/currency"
)

const cartKey = "cart"

// KV is an in-process session key-value store. Each guest session owns its
// own namespace.
type KV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewKV() *KV {
	return &KV{data: make(map[string][]byte)}
}

func (kv *KV) get(key string) ([]byte, bool) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	b, ok := kv.data[key]
	return b, ok
}

func (kv *KV) set(key string, value []byte) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.data[key] = value
}

func (kv *KV) delete(key string) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.data, key)
}

// Store binds a KV to one guest session and implements port.GuestStore.
type Store struct {
	kv        *KV
	sessionID string
}

func NewStore(kv *KV, sessionID string) (*Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("kv is nil")
	}
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID is empty")
	}

	return &Store{kv: kv, sessionID: sessionID}, nil
}

func (s *Store) key() string {
	return s.sessionID + ":" + cartKey
}

func (s *Store) Load(_ context.Context) ([]domain.LineItem, error) {
	raw, ok := s.kv.get(s.key())
	if !ok {
		return nil, nil
	}

	var records []lineRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %w", err)
	}

	return mapRecordsToDomain(records)
}

func (s *Store) Save(_ context.Context, lines []domain.LineItem) error {
	records := make([]lineRecord, 0, len(lines))
	for _, li := range lines {
		records = append(records, mapLineToRecord(li))
	}

	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	s.kv.set(s.key(), raw)
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.kv.delete(s.key())
	return nil
}

// lineRecord is the wire shape of a guest cart line. Money is flattened to a
// decimal string plus an ISO currency code so the record survives JSON
// round-trips.
type lineRecord struct {
	ID        string          `json:"id"`
	ProductID uuid.UUID       `json:"productId"`
	GradeID   uuid.UUID       `json:"gradeId"`
	GradeName string          `json:"gradeName"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Currency  string          `json:"currency"`
	ColorID   uuid.UUID       `json:"colorId"`
	ColorName string          `json:"colorName"`
	Swatch    string          `json:"swatch"`
	Quantity  int             `json:"quantity"`
	CreatedAt time.Time       `json:"createdAt"`
}

func mapLineToRecord(li domain.LineItem) lineRecord {
	return lineRecord{
		ID:        li.ID,
		ProductID: li.ProductID,
		GradeID:   li.GradeID,
		GradeName: li.GradeName,
		UnitPrice: li.UnitPrice.Amount,
		Currency:  li.UnitPrice.Currency.String(),
		ColorID:   li.ColorID,
		ColorName: li.ColorName,
		Swatch:    li.Swatch,
		Quantity:  li.Quantity,
		CreatedAt: li.CreatedAt,
	}
}

func mapRecordToDomain(r lineRecord) (domain.LineItem, error) {
	parsedCurrency, err := currency.ParseISO(r.Currency)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("currency[%s] is not valid: %w", r.Currency, err)
	}

	return domain.LineItem{
		ID:        r.ID,
		ProductID: r.ProductID,
		GradeID:   r.GradeID,
		GradeName: r.GradeName,
		UnitPrice: domain.Money{Amount: r.UnitPrice, Currency: parsedCurrency},
		ColorID:   r.ColorID,
		ColorName: r.ColorName,
		Swatch:    r.Swatch,
		Quantity:  r.Quantity,
		CreatedAt: r.CreatedAt,
	}, nil
}

func mapRecordsToDomain(records []lineRecord) ([]domain.LineItem, error) {
	var lines []domain.LineItem

	for _, r := range records {
		li, err := mapRecordToDomain(r)
		if err != nil {
			return nil, fmt.Errorf("mapRecordToDomain: %w", err)
		}

		lines = append(lines, li)
	}

	return lines, nil
}
