package whatsonchain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"time"

	"github.com/tokenized/openassets/bitcoin"
	"github.com/tokenized/openassets/wire"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	MaxTxRequestCount = 20 // max txs to request from URLGetRawTxs

	URLGetRawTx  = "https://api.whatsonchain.com/v1/bsv/%s/tx/%s/hex"
	URLGetRawTxs = "https://api.whatsonchain.com/v1/bsv/%s/txs/hex"
	URLMempool   = "wss://socket.whatsonchain.com/mempool/%s"

	pingInterval = 30 * time.Second
)

var (
	ErrTimeout = errors.New("Timed Out")
)

// Service is a TransactionProvider backed by the whatsonchain.com REST API.
type Service struct {
	apiKey  string
	network string
}

type HTTPError struct {
	Status  int
	Message string
}

type bulkTxRequest struct {
	TxIDs []bitcoin.Hash32 `json:"txids"`
}

type Tx struct {
	Bytes *bitcoin.Hex    `json:"hex"`
	TxID  *bitcoin.Hash32 `json:"txid"`
	Size  uint64          `json:"size"`

	BlockHash *bitcoin.Hash32 `json:"blockhash"`
	Time      uint32          `json:"time"`
}

func (err HTTPError) Error() string {
	if len(err.Message) > 0 {
		return fmt.Sprintf("HTTP Status %d : %s", err.Status, err.Message)
	}

	return fmt.Sprintf("HTTP Status %d", err.Status)
}

// NewService creates a whatsonchain client. network is "main" or "test".
func NewService(apiKey, network string) *Service {
	return &Service{
		apiKey:  apiKey,
		network: network,
	}
}

// GetTx implements openassets.TransactionProvider.
func (s *Service) GetTx(ctx context.Context, txid bitcoin.Hash32) (*wire.MsgTx, error) {
	url := fmt.Sprintf(URLGetRawTx, s.network, txid)

	var response string
	if err := getWithToken(ctx, url, s.apiKey, &response); err != nil {
		return nil, errors.Wrap(err, "get")
	}

	b, err := hex.DecodeString(response)
	if err != nil {
		return nil, errors.Wrap(err, "hex")
	}

	tx := &wire.MsgTx{}
	if err := tx.Deserialize(bytes.NewReader(b)); err != nil {
		return nil, errors.Wrap(err, "deserialize")
	}

	if !txid.Equal(tx.TxHash()) {
		return nil, fmt.Errorf("Wrong txid : got %s, want %s", tx.TxHash(), txid)
	}

	return tx, nil
}

// GetTxs fetches multiple transactions in one request. Callers must keep requests at or below
// MaxTxRequestCount.
func (s *Service) GetTxs(ctx context.Context, txids []bitcoin.Hash32) ([]*wire.MsgTx, error) {
	url := fmt.Sprintf(URLGetRawTxs, s.network)
	request := bulkTxRequest{
		TxIDs: txids,
	}

	var response []*Tx
	if err := postWithToken(ctx, url, s.apiKey, request, &response); err != nil {
		return nil, errors.Wrap(err, "get")
	}

	result := make([]*wire.MsgTx, len(response))
	for i, txData := range response {
		if txData.Bytes == nil {
			return nil, errors.New("Missing tx bytes")
		}

		tx := &wire.MsgTx{}
		if err := tx.Deserialize(bytes.NewReader(*txData.Bytes)); err != nil {
			return nil, errors.Wrapf(err, "deserialize %d", i)
		}
		result[i] = tx
	}

	return result, nil
}

// postWithToken sends a request to the HTTP server using the POST method with an authentication
// header token.
func postWithToken(ctx context.Context, url, token string, request, response interface{}) error {
	var transport = &http.Transport{
		Dial: (&net.Dialer{
			Timeout: 5 * time.Second,
		}).Dial,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	var client = &http.Client{
		Timeout:   time.Second * 10,
		Transport: transport,
	}

	var r io.Reader
	if request != nil {
		var b []byte
		if s, ok := request.(string); ok {
			// request is already a json string, not an object to convert to json
			b = []byte(s)
		} else {
			bt, err := json.Marshal(request)
			if err != nil {
				return errors.Wrap(err, "marshal request")
			}
			b = bt
		}
		r = bytes.NewReader(b)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, url, r)
	if err != nil {
		return errors.Wrap(err, "create request")
	}

	if len(token) > 0 {
		httpRequest.Header.Add("woc-api-key", token)
	}

	if request != nil {
		httpRequest.Header.Add("Content-Type", "application/json")
	}

	httpResponse, err := client.Do(httpRequest)
	if err != nil {
		if errors.Cause(err) == context.DeadlineExceeded {
			return errors.Wrap(ErrTimeout, errors.Wrap(err, "http post").Error())
		}

		return errors.Wrap(err, "http post")
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		if httpResponse.Body != nil {
			b, rerr := ioutil.ReadAll(httpResponse.Body)
			if rerr == nil {
				return HTTPError{
					Status:  httpResponse.StatusCode,
					Message: string(b),
				}
			}
		}

		return HTTPError{Status: httpResponse.StatusCode}
	}

	defer httpResponse.Body.Close()

	if response != nil {
		if responseString, isString := response.(*string); isString {
			b, err := ioutil.ReadAll(httpResponse.Body)
			if err != nil {
				return errors.Wrap(err, "read body")
			}
			*responseString = string(b)
		}

		if err := json.NewDecoder(httpResponse.Body).Decode(response); err != nil {
			return errors.Wrap(err, "decode response")
		}
	}

	return nil
}

// getWithToken sends a request to the HTTP server using the GET method with an authentication
// header token.
func getWithToken(ctx context.Context, url, token string, response interface{}) error {
	var transport = &http.Transport{
		Dial: (&net.Dialer{
			Timeout: 5 * time.Second,
		}).Dial,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	var client = &http.Client{
		Timeout:   time.Second * 10,
		Transport: transport,
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "create request")
	}

	if len(token) > 0 {
		httpRequest.Header.Add("woc-api-key", token)
	}

	httpResponse, err := client.Do(httpRequest)
	if err != nil {
		if errors.Cause(err) == context.DeadlineExceeded {
			return errors.Wrap(ErrTimeout, errors.Wrap(err, "http post").Error())
		}

		return errors.Wrap(err, "http post")
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		if httpResponse.Body != nil {
			b, rerr := ioutil.ReadAll(httpResponse.Body)
			if rerr == nil {
				return HTTPError{
					Status:  httpResponse.StatusCode,
					Message: string(b),
				}
			}
		}

		return HTTPError{Status: httpResponse.StatusCode}
	}

	defer httpResponse.Body.Close()

	if response != nil {
		if responseString, isString := response.(*string); isString {
			b, err := ioutil.ReadAll(httpResponse.Body)
			if err != nil {
				return errors.Wrap(err, "read body")
			}
			*responseString = string(b)
			return nil
		}

		if err := json.NewDecoder(httpResponse.Body).Decode(response); err != nil {
			return errors.Wrap(err, "decode response")
		}
	}

	return nil
}

type mempoolNotification struct {
	TxID bitcoin.Hash32 `json:"txid"`
}

// Watch opens a websocket connection to the mempool feed and calls onTx for every new
// transaction id announced. It blocks until ctx is cancelled or the connection fails.
func (s *Service) Watch(ctx context.Context, onTx func(bitcoin.Hash32)) error {
	url := fmt.Sprintf(URLMempool, s.network)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return errors.Wrap(err, "dial")
	}
	defer conn.Close()

	done := make(chan error, 1)
	go func() {
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure,
					websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					done <- nil
				} else {
					done <- errors.Wrap(err, "read")
				}
				return
			}

			var notification mempoolNotification
			if err := json.Unmarshal(message, &notification); err != nil {
				continue // ignore messages that aren't transaction notifications
			}

			onTx(notification.TxID)
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return ctx.Err()

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"),
				time.Now().Add(5*time.Second)); err != nil {
				return errors.Wrap(err, "ping")
			}

		case err := <-done:
			return err
		}
	}
}
