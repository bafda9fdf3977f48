package httpserver

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	votingsystem "tally/contexts/governance/voting-system"
	votinghttp "tally/contexts/governance/voting-system/transport/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

type testEnv struct {
	server *Server
	clock  *fixedClock
	admin  *ecdsa.PrivateKey
}

func newTestServer(t *testing.T) testEnv {
	t.Helper()
	admin, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate admin key: %v", err)
	}
	clock := &fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	module := votingsystem.NewInMemoryModule(crypto.PubkeyToAddress(admin.PublicKey), clock, slog.Default())
	return testEnv{
		server: New(module, clock, time.Minute, slog.Default(), ":0"),
		clock:  clock,
		admin:  admin,
	}
}

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func signedRequest(t *testing.T, key *ecdsa.PrivateKey, method, path string, body []byte, at time.Time) *http.Request {
	t.Helper()
	return signedRequestWithNonce(t, key, method, path, body, at, uuid.NewString())
}

func signedRequestWithNonce(t *testing.T, key *ecdsa.PrivateKey, method, path string, body []byte, at time.Time, nonce string) *http.Request {
	t.Helper()
	timestamp := strconv.FormatInt(at.Unix(), 10)
	signature, err := crypto.Sign(requestDigest(method, path, timestamp, nonce, body), key)
	if err != nil {
		t.Fatalf("sign request: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerCallerAddress, crypto.PubkeyToAddress(key.PublicKey).Hex())
	req.Header.Set(headerRequestTimestamp, timestamp)
	req.Header.Set(headerRequestNonce, nonce)
	req.Header.Set(headerSignature, hexutil.Encode(signature))
	return req
}

func cloneRequest(t *testing.T, req *http.Request, body []byte) *http.Request {
	t.Helper()
	clone := httptest.NewRequest(req.Method, req.URL.Path, bytes.NewReader(body))
	clone.Header = req.Header.Clone()
	return clone
}

func countProposals(t *testing.T, env testEnv) int {
	t.Helper()
	rr := env.do(httptest.NewRequest(http.MethodGet, "/v1/proposals", nil))
	var list votinghttp.ListProposalsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v body=%s", err, rr.Body.String())
	}
	return list.Count
}

func (e testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.server.mux.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) votinghttp.ErrorResponse {
	t.Helper()
	var resp votinghttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v body=%s", err, rr.Body.String())
	}
	return resp
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected %d, got %d body=%s", status, rr.Code, rr.Body.String())
	}
	if got := decodeError(t, rr).Code; got != code {
		t.Fatalf("expected error code %s, got %s", code, got)
	}
}

func TestCreateProposalRequiresSignature(t *testing.T) {
	env := newTestServer(t)
	body := []byte(`{"title":"t","description":"d","duration_seconds":60}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/proposals", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	expectError(t, env.do(req), http.StatusUnauthorized, "invalid_signature")
}

func TestSignedRequestRejectsForgedCaller(t *testing.T) {
	env := newTestServer(t)
	intruder := newKey(t)
	body := []byte(`{"title":"t","description":"d","duration_seconds":60}`)
	req := signedRequest(t, intruder, http.MethodPost, "/v1/proposals", body, env.clock.now)
	req.Header.Set(headerCallerAddress, crypto.PubkeyToAddress(env.admin.PublicKey).Hex())

	expectError(t, env.do(req), http.StatusUnauthorized, "invalid_signature")
}

func TestSignedRequestRejectsTamperedBody(t *testing.T) {
	env := newTestServer(t)
	signed := []byte(`{"title":"t","description":"d","duration_seconds":60}`)
	req := signedRequest(t, env.admin, http.MethodPost, "/v1/proposals", signed, env.clock.now)
	req.Body = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{"title":"x","description":"d","duration_seconds":60}`))).Body

	expectError(t, env.do(req), http.StatusUnauthorized, "invalid_signature")
}

func TestSignedRequestRejectsStaleTimestamp(t *testing.T) {
	env := newTestServer(t)
	body := []byte(`{"title":"t","description":"d","duration_seconds":60}`)
	req := signedRequest(t, env.admin, http.MethodPost, "/v1/proposals", body, env.clock.now.Add(-2*time.Minute))

	expectError(t, env.do(req), http.StatusUnauthorized, "invalid_signature")
}

func TestSignedRequestRejectsMissingNonce(t *testing.T) {
	env := newTestServer(t)
	body := []byte(`{"title":"t","description":"d","duration_seconds":60}`)
	req := signedRequest(t, env.admin, http.MethodPost, "/v1/proposals", body, env.clock.now)
	req.Header.Del(headerRequestNonce)

	expectError(t, env.do(req), http.StatusUnauthorized, "invalid_signature")
}

func TestSignedRequestRejectsReplay(t *testing.T) {
	env := newTestServer(t)
	body := []byte(`{"title":"t","description":"d","duration_seconds":60}`)
	first := signedRequest(t, env.admin, http.MethodPost, "/v1/proposals", body, env.clock.now)
	replay := cloneRequest(t, first, body)

	if rr := env.do(first); rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	env.clock.now = env.clock.now.Add(30 * time.Second)
	expectError(t, env.do(replay), http.StatusUnauthorized, "invalid_signature")

	if got := countProposals(t, env); got != 1 {
		t.Fatalf("expected 1 proposal after replay, got %d", got)
	}
}

func TestSignedRequestRejectsReusedNonceWithNewBody(t *testing.T) {
	env := newTestServer(t)
	nonce := uuid.NewString()

	rr := env.do(signedRequestWithNonce(t, env.admin, http.MethodPost, "/v1/proposals",
		[]byte(`{"title":"a","description":"d","duration_seconds":60}`), env.clock.now, nonce))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	expectError(t, env.do(signedRequestWithNonce(t, env.admin, http.MethodPost, "/v1/proposals",
		[]byte(`{"title":"b","description":"d","duration_seconds":60}`), env.clock.now, nonce)),
		http.StatusUnauthorized, "invalid_signature")
}

func TestSignedRequestNonceScopedToCaller(t *testing.T) {
	env := newTestServer(t)
	voter := newKey(t)
	voterAddress := crypto.PubkeyToAddress(voter.PublicKey).Hex()
	nonce := "shared-nonce"

	rr := env.do(signedRequestWithNonce(t, env.admin, http.MethodPost, "/v1/voters",
		[]byte(`{"voter":"`+voterAddress+`"}`), env.clock.now, nonce))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = env.do(signedRequest(t, env.admin, http.MethodPost, "/v1/proposals",
		[]byte(`{"title":"t","description":"d","duration_seconds":60}`), env.clock.now))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = env.do(signedRequestWithNonce(t, voter, http.MethodPost, "/v1/proposals/0/votes",
		[]byte(`{"support":true}`), env.clock.now, nonce))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCreateProposalRejectsNonAdmin(t *testing.T) {
	env := newTestServer(t)
	body := []byte(`{"title":"t","description":"d","duration_seconds":60}`)
	req := signedRequest(t, newKey(t), http.MethodPost, "/v1/proposals", body, env.clock.now)

	expectError(t, env.do(req), http.StatusForbidden, "unauthorized")
}

func TestCreateProposalRejectsInvalidJSON(t *testing.T) {
	env := newTestServer(t)
	req := signedRequest(t, env.admin, http.MethodPost, "/v1/proposals", []byte(`{`), env.clock.now)

	expectError(t, env.do(req), http.StatusBadRequest, "invalid_json")
}

func TestGetProposalErrors(t *testing.T) {
	env := newTestServer(t)

	expectError(t, env.do(httptest.NewRequest(http.MethodGet, "/v1/proposals/0", nil)), http.StatusNotFound, "proposal_not_found")
	expectError(t, env.do(httptest.NewRequest(http.MethodGet, "/v1/proposals/-1", nil)), http.StatusBadRequest, "invalid_proposal_id")
	expectError(t, env.do(httptest.NewRequest(http.MethodGet, "/v1/proposals/abc/counts", nil)), http.StatusBadRequest, "invalid_proposal_id")
}

func TestIsRegisteredVoterRejectsMalformedAddress(t *testing.T) {
	env := newTestServer(t)
	expectError(t, env.do(httptest.NewRequest(http.MethodGet, "/v1/voters/not-an-address", nil)), http.StatusBadRequest, "invalid_request")
}

func TestVotingLifecycle(t *testing.T) {
	env := newTestServer(t)
	voter := newKey(t)
	voterAddress := crypto.PubkeyToAddress(voter.PublicKey).Hex()

	rr := env.do(signedRequest(t, env.admin, http.MethodPost, "/v1/voters",
		[]byte(`{"voter":"`+voterAddress+`"}`), env.clock.now))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	expectError(t, env.do(signedRequest(t, env.admin, http.MethodPost, "/v1/voters",
		[]byte(`{"voter":"`+voterAddress+`"}`), env.clock.now)), http.StatusConflict, "already_registered")

	rr = env.do(httptest.NewRequest(http.MethodGet, "/v1/voters/"+voterAddress, nil))
	var registered votinghttp.VoterResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &registered); err != nil || !registered.Registered {
		t.Fatalf("expected voter registered, got %s", rr.Body.String())
	}

	rr = env.do(signedRequest(t, env.admin, http.MethodPost, "/v1/proposals",
		[]byte(`{"title":"Budget","description":"Approve budget","duration_seconds":3600}`), env.clock.now))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var created votinghttp.ProposalResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode proposal: %v", err)
	}
	if created.ProposalID != 0 || created.Status != "active" {
		t.Fatalf("unexpected proposal: %+v", created)
	}

	rr = env.do(signedRequest(t, voter, http.MethodPost, "/v1/proposals/0/votes", []byte(`{"support":true}`), env.clock.now))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var counts votinghttp.VoteCountsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &counts); err != nil {
		t.Fatalf("decode counts: %v", err)
	}
	if counts.Yes != 1 || counts.No != 0 {
		t.Fatalf("expected 1/0, got %d/%d", counts.Yes, counts.No)
	}

	expectError(t, env.do(signedRequest(t, voter, http.MethodPost, "/v1/proposals/0/votes",
		[]byte(`{"support":false}`), env.clock.now)), http.StatusConflict, "duplicate_vote")
	expectError(t, env.do(signedRequest(t, newKey(t), http.MethodPost, "/v1/proposals/0/votes",
		[]byte(`{"support":false}`), env.clock.now)), http.StatusForbidden, "unauthorized")
	expectError(t, env.do(signedRequest(t, env.admin, http.MethodPost, "/v1/proposals/0/end",
		nil, env.clock.now)), http.StatusConflict, "too_early")

	rr = env.do(httptest.NewRequest(http.MethodGet, "/v1/proposals/0/votes/"+voterAddress, nil))
	var voted votinghttp.HasVotedResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &voted); err != nil || !voted.HasVoted {
		t.Fatalf("expected has_voted true, got %s", rr.Body.String())
	}

	env.clock.now = env.clock.now.Add(time.Hour)

	late := newKey(t)
	lateAddress := crypto.PubkeyToAddress(late.PublicKey).Hex()
	rr = env.do(signedRequest(t, env.admin, http.MethodPost, "/v1/voters",
		[]byte(`{"voter":"`+lateAddress+`"}`), env.clock.now))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	expectError(t, env.do(signedRequest(t, late, http.MethodPost, "/v1/proposals/0/votes",
		[]byte(`{"support":false}`), env.clock.now)), http.StatusConflict, "voting_closed")

	expectError(t, env.do(signedRequest(t, voter, http.MethodPost, "/v1/proposals/0/end",
		nil, env.clock.now)), http.StatusForbidden, "unauthorized")

	rr = env.do(signedRequest(t, env.admin, http.MethodPost, "/v1/proposals/0/end", nil, env.clock.now))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var ended votinghttp.ProposalResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &ended); err != nil {
		t.Fatalf("decode ended proposal: %v", err)
	}
	if ended.Status != "passed" || ended.EndedAt == nil {
		t.Fatalf("expected passed with ended_at, got %+v", ended)
	}

	expectError(t, env.do(signedRequest(t, env.admin, http.MethodPost, "/v1/proposals/0/end",
		nil, env.clock.now)), http.StatusConflict, "already_finalized")

	rr = env.do(httptest.NewRequest(http.MethodGet, "/v1/proposals?status=passed", nil))
	var list votinghttp.ListProposalsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Count != 1 || len(list.Items) != 1 {
		t.Fatalf("expected one passed proposal, got %+v", list)
	}
}

func TestListProposalsRejectsBadQuery(t *testing.T) {
	env := newTestServer(t)
	expectError(t, env.do(httptest.NewRequest(http.MethodGet, "/v1/proposals?limit=ten", nil)), http.StatusBadRequest, "invalid_limit")
	expectError(t, env.do(httptest.NewRequest(http.MethodGet, "/v1/proposals?status=pending", nil)), http.StatusBadRequest, "invalid_request")
}

func TestTransferOwnership(t *testing.T) {
	env := newTestServer(t)
	successor := newKey(t)
	successorAddress := crypto.PubkeyToAddress(successor.PublicKey).Hex()

	expectError(t, env.do(signedRequest(t, env.admin, http.MethodPost, "/v1/owner/transfer",
		[]byte(`{"new_owner":"0x0000000000000000000000000000000000000000"}`), env.clock.now)), http.StatusBadRequest, "invalid_request")

	rr := env.do(signedRequest(t, env.admin, http.MethodPost, "/v1/owner/transfer",
		[]byte(`{"new_owner":"`+successorAddress+`"}`), env.clock.now))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = env.do(httptest.NewRequest(http.MethodGet, "/v1/owner", nil))
	var owner votinghttp.OwnerResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &owner); err != nil {
		t.Fatalf("decode owner: %v", err)
	}
	if owner.Owner != successorAddress {
		t.Fatalf("expected owner %s, got %s", successorAddress, owner.Owner)
	}

	expectError(t, env.do(signedRequest(t, env.admin, http.MethodPost, "/v1/proposals",
		[]byte(`{"title":"t","description":"d","duration_seconds":60}`), env.clock.now)), http.StatusForbidden, "unauthorized")
}

func TestSwaggerDocumentServed(t *testing.T) {
	env := newTestServer(t)
	rr := env.do(httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("/v1/proposals/{proposal_id}/end")) {
		t.Fatalf("swagger document missing voting routes")
	}
}
