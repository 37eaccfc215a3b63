package mpesa

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Callback is the flattened Body.stkCallback of a result notification
type Callback struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Metadata          map[string]string
}

type callbackEnvelope struct {
	Body *struct {
		StkCallback *struct {
			MerchantRequestID string       `json:"MerchantRequestID"`
			CheckoutRequestID string       `json:"CheckoutRequestID"`
			ResultCode        *json.Number `json:"ResultCode"`
			ResultDesc        string       `json:"ResultDesc"`
			CallbackMetadata  *struct {
				Item []struct {
					Name  string      `json:"Name"`
					Value interface{} `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// ParseCallback decodes a provider callback. Metadata values are kept verbatim, so
// 254712345678 stays an integer string and 1.00 keeps its decimals.
func ParseCallback(raw []byte) (*Callback, error) {
	var envelope callbackEnvelope
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}

	if envelope.Body == nil || envelope.Body.StkCallback == nil {
		return nil, fmt.Errorf("%w: missing Body.stkCallback", ErrMalformedCallback)
	}
	stk := envelope.Body.StkCallback
	if stk.CheckoutRequestID == "" {
		return nil, fmt.Errorf("%w: missing CheckoutRequestID", ErrMalformedCallback)
	}
	if stk.ResultCode == nil {
		return nil, fmt.Errorf("%w: missing ResultCode", ErrMalformedCallback)
	}
	code, err := stk.ResultCode.Int64()
	if err != nil {
		return nil, fmt.Errorf("%w: non-integer ResultCode %q", ErrMalformedCallback, stk.ResultCode.String())
	}

	cb := &Callback{
		MerchantRequestID: stk.MerchantRequestID,
		CheckoutRequestID: stk.CheckoutRequestID,
		ResultCode:        int(code),
		ResultDesc:        stk.ResultDesc,
		Metadata:          map[string]string{},
	}
	if stk.CallbackMetadata != nil {
		for _, item := range stk.CallbackMetadata.Item {
			if item.Name == "" || item.Value == nil {
				continue
			}
			switch v := item.Value.(type) {
			case string:
				cb.Metadata[item.Name] = v
			case json.Number:
				cb.Metadata[item.Name] = v.String()
			default:
				cb.Metadata[item.Name] = fmt.Sprint(v)
			}
		}
	}

	return cb, nil
}

// AccountReference returns the echoed account reference, falling back to the
// CheckoutRequestID. The boolean reports whether the metadata carried it.
func (c *Callback) AccountReference() (string, bool) {
	if ref := c.Metadata["AccountReference"]; ref != "" {
		return ref, true
	}
	if ref := c.Metadata["account_reference"]; ref != "" {
		return ref, true
	}
	return c.CheckoutRequestID, false
}
