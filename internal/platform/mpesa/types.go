package mpesa

import "encoding/json"

// PushParams is the caller side of an STK push; credentials come from the client config
type PushParams struct {
	PhoneNumber      string
	Amount           json.Number
	AccountReference string
	Description      string
}

// STKPushRequest is the Lipa Na M-Pesa Online process request body
type STKPushRequest struct {
	BusinessShortCode string      `json:"BusinessShortCode"`
	Password          string      `json:"Password"`
	Timestamp         string      `json:"Timestamp"`
	TransactionType   string      `json:"TransactionType"`
	Amount            json.Number `json:"Amount"`
	PartyA            string      `json:"PartyA"`
	PartyB            string      `json:"PartyB"`
	PhoneNumber       string      `json:"PhoneNumber"`
	CallBackURL       string      `json:"CallBackURL"`
	AccountReference  string      `json:"AccountReference"`
	TransactionDesc   string      `json:"TransactionDesc"`
}

// STKPushResponse is the synchronous acknowledgement of a push
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// Accepted reports whether the provider queued the push on the customer's phone
func (r *STKPushResponse) Accepted() bool {
	return r.ResponseCode == "0"
}

type STKQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

// STKQueryResponse is the status of an earlier push. ResultCode arrives as a string or a
// number depending on the environment.
type STKQueryResponse struct {
	ResponseCode        string      `json:"ResponseCode"`
	ResponseDescription string      `json:"ResponseDescription"`
	MerchantRequestID   string      `json:"MerchantRequestID"`
	CheckoutRequestID   string      `json:"CheckoutRequestID"`
	ResultCode          json.Number `json:"ResultCode"`
	ResultDesc          string      `json:"ResultDesc"`
}

// QueryStillProcessing is the query ResultCode Daraja answers, with HTTP 200, while the
// customer has not yet acted on the prompt
const QueryStillProcessing = 4999

// Callback converts a query result into the shape a pushed callback would have had.
// It returns false when the provider has no final result yet.
func (r *STKQueryResponse) Callback() (*Callback, bool) {
	if r.ResultCode == "" {
		return nil, false
	}
	code, err := r.ResultCode.Int64()
	if err != nil || code == QueryStillProcessing {
		return nil, false
	}
	return &Callback{
		MerchantRequestID: r.MerchantRequestID,
		CheckoutRequestID: r.CheckoutRequestID,
		ResultCode:        int(code),
		ResultDesc:        r.ResultDesc,
		Metadata:          map[string]string{},
	}, true
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

type errorResponse struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}
