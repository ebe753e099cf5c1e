package payhere

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Notification is the typed, fully populated form of a gateway callback.
type Notification struct {
	MerchantID string `json:"merchant_id" validate:"required"`
	OrderID    string `json:"order_id" validate:"required"`
	Amount     string `json:"payhere_amount" validate:"required"`
	Currency   string `json:"payhere_currency" validate:"required"`
	StatusCode string `json:"status_code" validate:"required"`
	Signature  string `json:"md5sig" validate:"required"`
}

// Succeeded reports whether the gateway captured the payment.
func (n Notification) Succeeded() bool {
	return n.StatusCode == StatusSuccess
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}

// ParseNotification decodes a callback body delivered as JSON or as
// URL-encoded form data. When the content type is missing or unknown the
// body is sniffed.
//
// Returns:
//   - Notification: the validated notification.
//   - error: ErrMalformedBody if the body cannot be decoded.
//   - error: ErrMissingFields if a required field is empty.
func ParseNotification(contentType string, raw []byte) (Notification, error) {
	fields, err := decodeFields(contentType, raw)
	if err != nil {
		return Notification{}, err
	}

	n := Notification{
		MerchantID: fields["merchant_id"],
		OrderID:    fields["order_id"],
		Amount:     firstNonEmpty(fields["payhere_amount"], fields["amount"]),
		Currency:   firstNonEmpty(fields["payhere_currency"], fields["currency"]),
		StatusCode: fields["status_code"],
		Signature:  fields["md5sig"],
	}

	if err := validate.Struct(n); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			names := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				names = append(names, fe.Field())
			}
			return Notification{}, fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(names, ","))
		}
		return Notification{}, fmt.Errorf("%w: %v", ErrMissingFields, err)
	}

	return n, nil
}

func decodeFields(contentType string, raw []byte) (map[string]string, error) {
	body := bytes.TrimSpace(raw)
	if len(body) == 0 {
		return map[string]string{}, nil
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch {
	case mediaType == "application/x-www-form-urlencoded":
		return decodeForm(body)
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return decodeJSON(body)
	case body[0] == '{':
		return decodeJSON(body)
	default:
		return decodeForm(body)
	}
}

func decodeForm(body []byte) (map[string]string, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	out := make(map[string]string, len(values))
	for k := range values {
		out[k] = strings.TrimSpace(values.Get(k))
	}
	return out, nil
}

func decodeJSON(body []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch t := v.(type) {
		case nil:
		case string:
			out[k] = strings.TrimSpace(t)
		case json.Number:
			out[k] = t.String()
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
