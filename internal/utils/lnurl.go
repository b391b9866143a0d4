package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/pkg/errors"
)

// EncodeLNURL bech32-encodes a callback URL with the lnurl human readable
// part, the form wallets scan from QR codes.
func EncodeLNURL(url string) (string, error) {
	converted, err := bech32.ConvertBits([]byte(url), 8, 5, true)
	if err != nil {
		return "", errors.Wrap(err, "failed to convert bits")
	}
	encoded, err := bech32.Encode("lnurl", converted)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode lnurl")
	}
	return strings.ToUpper(encoded), nil
}

// PayMetadata builds the LNURL-pay metadata array for an address. Payers
// hash this string into the invoice description hash, so its byte layout is
// part of the protocol surface.
func PayMetadata(username, domain string) (string, error) {
	address := fmt.Sprintf("%s@%s", username, domain)
	entries := [][]string{
		{"text/identifier", address},
		{"text/plain", fmt.Sprintf("Satoshis to %s!", address)},
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
