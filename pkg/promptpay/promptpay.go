package promptpay

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// EMVCo tag IDs used by the Thai PromptPay scheme.
const (
	tagPayloadFormat      = "00"
	tagPointOfInitiation  = "01"
	tagMerchantAccount    = "29"
	tagMerchantCategory   = "52"
	tagCurrency           = "53"
	tagAmount             = "54"
	tagCountry            = "58"
	tagMerchantName       = "59"
	tagMerchantCity       = "60"
	tagCRC                = "63"
	promptPayAID          = "A000000677010111"
	currencyTHB           = "764"
	countryTH             = "TH"
	pointOfInitStatic     = "11"
	pointOfInitDynamic    = "12"
	merchantCategoryOther = "0000"
)

// ErrInvalidTarget signals a PromptPay target that is neither a Thai phone
// number nor a 13/15 digit national/tax ID.
var ErrInvalidTarget = fmt.Errorf("promptpay target must be a 10-digit phone or 13/15-digit ID")

// Builder carries the merchant identity stamped into every payload.
type Builder struct {
	Target       string
	MerchantName string
	City         string
}

// NormalizeTarget strips formatting and converts a local phone number into the
// 0066-prefixed form PromptPay requires.
func NormalizeTarget(raw string) (string, error) {
	var digits strings.Builder
	for _, ch := range raw {
		if ch >= '0' && ch <= '9' {
			digits.WriteRune(ch)
		}
	}
	normalized := digits.String()
	if len(normalized) == 10 && strings.HasPrefix(normalized, "0") {
		normalized = "0066" + normalized[1:]
	}
	if len(normalized) != 13 && len(normalized) != 15 {
		return "", ErrInvalidTarget
	}
	return normalized, nil
}

// BuildPayload assembles the EMVCo TLV payload. A nil amount produces a static
// QR; a positive amount produces a dynamic QR with the amount locked in.
func (b Builder) BuildPayload(amount *decimal.Decimal) (string, error) {
	target, err := NormalizeTarget(b.Target)
	if err != nil {
		return "", err
	}

	dynamic := amount != nil && amount.IsPositive()
	pointOfInit := pointOfInitStatic
	if dynamic {
		pointOfInit = pointOfInitDynamic
	}

	// Sub-tags inside the merchant account template: 00 = AID, 01 = target.
	merchantAccount := tlv("00", promptPayAID) + tlv("01", target)

	var payload strings.Builder
	payload.WriteString(tlv(tagPayloadFormat, "01"))
	payload.WriteString(tlv(tagPointOfInitiation, pointOfInit))
	payload.WriteString(tlv(tagMerchantAccount, merchantAccount))
	payload.WriteString(tlv(tagMerchantCategory, merchantCategoryOther))
	payload.WriteString(tlv(tagCurrency, currencyTHB))
	payload.WriteString(tlv(tagCountry, countryTH))
	payload.WriteString(tlv(tagMerchantName, b.merchantName()))
	payload.WriteString(tlv(tagMerchantCity, b.city()))

	if dynamic {
		payload.WriteString(tlv(tagAmount, amount.StringFixed(2)))
	}

	withoutCRC := payload.String() + tagCRC + "04"
	crc := crc16CCITT([]byte(withoutCRC))
	payload.WriteString(fmt.Sprintf("%s04%04X", tagCRC, crc))

	return payload.String(), nil
}

func (b Builder) merchantName() string {
	if strings.TrimSpace(b.MerchantName) == "" {
		return "Nine Krua POS"
	}
	return b.MerchantName
}

func (b Builder) city() string {
	if strings.TrimSpace(b.City) == "" {
		return "Bangkok"
	}
	return b.City
}

func tlv(tag, value string) string {
	return fmt.Sprintf("%s%02d%s", tag, len(value), value)
}

// crc16CCITT computes CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF) as
// mandated by the EMVCo QR spec.
func crc16CCITT(data []byte) uint16 {
	const polynomial = 0x1021
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ polynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
