package httpserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

const (
	headerCallerAddress    = "X-Caller-Address"
	headerRequestTimestamp = "X-Request-Timestamp"
	headerRequestNonce     = "X-Request-Nonce"
	headerSignature        = "X-Signature"

	maxNonceLength = 128
)

var (
	errMissingSignature  = errors.New("X-Caller-Address, X-Request-Timestamp, X-Request-Nonce and X-Signature headers are required")
	errInvalidCaller     = errors.New("X-Caller-Address must be a hex address")
	errInvalidTimestamp  = errors.New("X-Request-Timestamp must be unix seconds")
	errInvalidNonce      = errors.New("X-Request-Nonce must be at most 128 characters")
	errStaleTimestamp    = errors.New("request timestamp outside allowed skew")
	errMalformedSig      = errors.New("X-Signature must be a 65-byte hex signature")
	errSignatureMismatch = errors.New("signature does not match caller address")
	errBodyTooLarge      = errors.New("request body too large")
)

type verifiedRequest struct {
	Caller   common.Address
	Nonce    string
	IssuedAt time.Time
	Body     []byte
}

// requestDigest is keccak256 over method, path, timestamp, nonce and body
// joined by newlines.
func requestDigest(method, path, timestamp, nonce string, body []byte) []byte {
	hasher := sha3.NewLegacyKeccak256()
	for _, part := range []string{method, path, timestamp, nonce} {
		_, _ = hasher.Write([]byte(part))
		_, _ = hasher.Write([]byte("\n"))
	}
	_, _ = hasher.Write(body)
	return hasher.Sum(nil)
}

// verifySignedRequest reads the body and recovers the signer. The body is
// restored on the request so later readers still see it. Nonce reuse is
// checked by the caller.
func verifySignedRequest(r *http.Request, now time.Time, maxSkew time.Duration, maxBody int64) (verifiedRequest, error) {
	callerRaw := strings.TrimSpace(r.Header.Get(headerCallerAddress))
	timestampRaw := strings.TrimSpace(r.Header.Get(headerRequestTimestamp))
	nonce := strings.TrimSpace(r.Header.Get(headerRequestNonce))
	signatureRaw := strings.TrimSpace(r.Header.Get(headerSignature))
	if callerRaw == "" || timestampRaw == "" || nonce == "" || signatureRaw == "" {
		return verifiedRequest{}, errMissingSignature
	}
	if !common.IsHexAddress(callerRaw) {
		return verifiedRequest{}, errInvalidCaller
	}
	caller := common.HexToAddress(callerRaw)
	if len(nonce) > maxNonceLength {
		return verifiedRequest{}, errInvalidNonce
	}

	unixSeconds, err := strconv.ParseInt(timestampRaw, 10, 64)
	if err != nil {
		return verifiedRequest{}, errInvalidTimestamp
	}
	issuedAt := time.Unix(unixSeconds, 0)
	skew := now.Sub(issuedAt)
	if skew < 0 {
		skew = -skew
	}
	if skew > maxSkew {
		return verifiedRequest{}, errStaleTimestamp
	}

	if !strings.HasPrefix(signatureRaw, "0x") && !strings.HasPrefix(signatureRaw, "0X") {
		signatureRaw = "0x" + signatureRaw
	}
	signature, err := hexutil.Decode(signatureRaw)
	if err != nil || len(signature) != crypto.SignatureLength {
		return verifiedRequest{}, errMalformedSig
	}
	// Accept wallet-style recovery ids (27/28) as well as raw 0/1.
	if signature[crypto.RecoveryIDOffset] >= 27 {
		signature[crypto.RecoveryIDOffset] -= 27
	}

	body, err := readBody(r, maxBody)
	if err != nil {
		return verifiedRequest{}, err
	}

	digest := requestDigest(r.Method, r.URL.Path, timestampRaw, nonce, body)
	pub, err := crypto.SigToPub(digest, signature)
	if err != nil {
		return verifiedRequest{}, fmt.Errorf("%w: %v", errMalformedSig, err)
	}
	if crypto.PubkeyToAddress(*pub) != caller {
		return verifiedRequest{}, errSignatureMismatch
	}
	return verifiedRequest{Caller: caller, Nonce: nonce, IssuedAt: issuedAt, Body: body}, nil
}

func readBody(r *http.Request, maxBody int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if int64(len(body)) > maxBody {
		return nil, errBodyTooLarge
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
