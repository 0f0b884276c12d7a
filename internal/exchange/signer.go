package exchange

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Signer produces the personal-sign signatures the RPC endpoint expects.
//
// The signed message is "<address>-<method>-<canonical-json-params>-<timestamp>"
// where canonical JSON has alphabetically sorted keys (Go's json.Marshal of a
// map already guarantees that).
type Signer struct {
	address string
	key     *ecdsa.PrivateKey
}

// NewSigner validates the key and derives/checks the account address.
func NewSigner(address, privateKey string) (*Signer, error) {
	keyHex := strings.TrimPrefix(strings.TrimSpace(privateKey), "0x")
	if keyHex == "" {
		return nil, errors.New("exchange: private key is required")
	}
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, errors.Wrap(err, "exchange: invalid private key")
	}

	derived := crypto.PubkeyToAddress(key.PublicKey).Hex()
	addr := strings.TrimSpace(address)
	if addr == "" {
		addr = derived
	} else if !strings.EqualFold(addr, derived) {
		return nil, errors.Errorf("exchange: address %s does not match private key (derived %s)", addr, derived)
	}

	return &Signer{address: addr, key: key}, nil
}

// Address returns the signing account address.
func (s *Signer) Address() string {
	return s.address
}

// SignPayload signs a method call at the current unix time.
func (s *Signer) SignPayload(method string, params map[string]any) (signature string, timestamp int64, err error) {
	return s.signPayloadAt(method, params, time.Now().Unix())
}

func (s *Signer) signPayloadAt(method string, params map[string]any, ts int64) (string, int64, error) {
	msg, err := signingMessage(s.address, method, params, ts)
	if err != nil {
		return "", 0, err
	}

	sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), s.key)
	if err != nil {
		return "", 0, errors.Wrap(err, "exchange: sign")
	}
	return hexutil.Encode(sig), ts, nil
}

// signingMessage builds the canonical message string for a call.
func signingMessage(address, method string, params map[string]any, ts int64) (string, error) {
	canonical, err := json.Marshal(params)
	if err != nil {
		return "", errors.Wrap(err, "exchange: marshal params")
	}
	return fmt.Sprintf("%s-%s-%s-%d", address, method, canonical, ts), nil
}
