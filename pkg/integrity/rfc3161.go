package integrity

import (
	"bytes"
	"crypto/rand"
	"encoding/asn1"
	"fmt"
	"math/big"
	"net/http"
	"time"
)

// Public TSA endpoints, kept as separate named constants so a caller can
// request a timestamp from one and cross-check with the other.
const (
	FreeTSAURL     = "https://freetsa.org/tsr"
	DigiCertTSAURL = "http://timestamp.digicert.com"
)

var oidSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
var oidTSTInfo = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 1, 4}
var oidSignedData = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}

const (
	pkiStatusGranted         = 0
	pkiStatusGrantedWithMods = 1
)

type algorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.RawValue `asn1:"optional"`
}

type messageImprint struct {
	HashAlgorithm algorithmIdentifier
	HashedMessage []byte
}

type tsRequest struct {
	Version        int
	MessageImprint messageImprint
	ReqPolicy      asn1.ObjectIdentifier `asn1:"optional"`
	Nonce          *big.Int              `asn1:"optional"`
	CertReq        bool                  `asn1:"optional"`
	Extensions     []asn1.RawValue       `asn1:"optional,tag:0"`
}

type pkiStatusInfo struct {
	Status       int
	StatusString []string       `asn1:"optional"`
	FailInfo     asn1.BitString `asn1:"optional"`
}

type tsResponse struct {
	Status         pkiStatusInfo
	TimeStampToken asn1.RawValue `asn1:"optional"`
}

type contentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"explicit,tag:0"`
}

type encapContentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"optional,explicit,tag:0"`
}

type attribute struct {
	Type   asn1.ObjectIdentifier
	Values []asn1.RawValue `asn1:"set"`
}

type signerInfo struct {
	Version            int
	SignerIdentifier   asn1.RawValue
	DigestAlgorithm    algorithmIdentifier
	SignedAttrs        []attribute `asn1:"optional,tag:0"`
	SignatureAlgorithm algorithmIdentifier
	Signature          []byte
	UnsignedAttrs      []attribute `asn1:"optional,tag:1"`
}

type signedData struct {
	Version          int
	DigestAlgorithms []algorithmIdentifier `asn1:"set"`
	EncapContentInfo encapContentInfo
	Certificates     asn1.RawValue `asn1:"optional,tag:0"`
	CRLs             asn1.RawValue `asn1:"optional,tag:1"`
	SignerInfos      []signerInfo  `asn1:"set"`
}

type accuracy struct {
	Seconds int `asn1:"optional"`
	Millis  int `asn1:"optional,tag:0"`
	Micros  int `asn1:"optional,tag:1"`
}

type tstInfo struct {
	Version        int
	Policy         asn1.ObjectIdentifier
	MessageImprint messageImprint
	SerialNumber   *big.Int
	GenTime        time.Time
	Accuracy       accuracy        `asn1:"optional"`
	Ordering       bool            `asn1:"optional"`
	Nonce          *big.Int        `asn1:"optional"`
	TSA            asn1.RawValue   `asn1:"optional,tag:0"`
	Extensions     []asn1.RawValue `asn1:"optional,tag:1"`
}

var tsaHTTPClient = &http.Client{Timeout: 10 * time.Second}

// RequestTimestamp asks tsaURL for an RFC 3161 timestamp token binding
// sha256, with a random nonce and cert_req set so the TSA includes its
// signing certificate. It returns the raw DER-encoded response.
func RequestTimestamp(tsaURL string, sha256 [32]byte) ([]byte, error) {
	nonce, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return nil, wrap(ErrSerialization, err)
	}

	req := tsRequest{
		Version: 1,
		MessageImprint: messageImprint{
			HashAlgorithm: algorithmIdentifier{Algorithm: oidSHA256},
			HashedMessage: sha256[:],
		},
		Nonce:   nonce,
		CertReq: true,
	}
	der, err := asn1.Marshal(req)
	if err != nil {
		return nil, wrap(ErrSerialization, err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, tsaURL, bytes.NewReader(der))
	if err != nil {
		return nil, wrap(ErrNetwork, err)
	}
	httpReq.Header.Set("Content-Type", "application/timestamp-query")
	httpReq.Header.Set("Accept", "application/timestamp-reply")

	resp, err := tsaHTTPClient.Do(httpReq)
	if err != nil {
		return nil, wrap(ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, wrap(ErrNetwork, fmt.Errorf("tsa %s: http %d", tsaURL, resp.StatusCode))
	}

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, wrap(ErrNetwork, err)
	}
	return buf.Bytes(), nil
}

// VerifyTimestamp parses tokenDER and checks that it was granted and that
// its message-imprint is a SHA-256 hash equal to expectedSHA256.
func VerifyTimestamp(tokenDER []byte, expectedSHA256 [32]byte) (bool, error) {
	var resp tsResponse
	if _, err := asn1.Unmarshal(tokenDER, &resp); err != nil {
		return false, wrap(ErrSerialization, err)
	}

	if resp.Status.Status != pkiStatusGranted && resp.Status.Status != pkiStatusGrantedWithMods {
		return false, wrap(ErrTimestamp, fmt.Errorf("tsa status %d", resp.Status.Status))
	}
	if len(resp.TimeStampToken.Bytes) == 0 {
		return false, wrap(ErrTimestamp, fmt.Errorf("response carries no timestamp token"))
	}

	var ci contentInfo
	if _, err := asn1.Unmarshal(resp.TimeStampToken.FullBytes, &ci); err != nil {
		return false, wrap(ErrSerialization, err)
	}
	if !ci.ContentType.Equal(oidSignedData) {
		return false, wrap(ErrTimestamp, fmt.Errorf("timestamp token content type is not SignedData"))
	}

	var sd signedData
	if _, err := asn1.Unmarshal(ci.Content.Bytes, &sd); err != nil {
		return false, wrap(ErrSerialization, err)
	}
	if !sd.EncapContentInfo.ContentType.Equal(oidTSTInfo) {
		return false, wrap(ErrTimestamp, fmt.Errorf("signed content is not TSTInfo"))
	}

	tstBytes := sd.EncapContentInfo.Content.Bytes
	var wrapped []byte
	if _, err := asn1.Unmarshal(tstBytes, &wrapped); err == nil {
		tstBytes = wrapped
	}

	var tst tstInfo
	if _, err := asn1.Unmarshal(tstBytes, &tst); err != nil {
		return false, wrap(ErrSerialization, err)
	}

	if !tst.MessageImprint.HashAlgorithm.Algorithm.Equal(oidSHA256) {
		return false, wrap(ErrTimestamp, fmt.Errorf("message imprint is not SHA-256"))
	}
	if !bytes.Equal(tst.MessageImprint.HashedMessage, expectedSHA256[:]) {
		return false, wrap(ErrInvalidSignature, fmt.Errorf("message imprint does not match artifact digest"))
	}

	return true, nil
}
