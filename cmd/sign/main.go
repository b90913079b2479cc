package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/mr-tron/base58"

	"github.com/eldtechnologies/messenger/internal/crypto"
)

var args struct {
	Key    string `arg:"-k,--key,required,env:MESSENGER_KEY" help:"Base64-encoded Ed25519 private key or seed"`
	Method string `arg:"-m,--method" default:"POST" help:"HTTP method"`
	Path   string `arg:"-p,--path,required" help:"Request path, e.g. /messages"`
	Body   string `arg:"-b,--body" help:"File containing request body (or use stdin)"`
}

func main() {
	arg.MustParse(&args)

	privKey, err := crypto.ParsePrivateKey(args.Key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid private key: %v\n", err)
		os.Exit(1)
	}

	// Read body
	var body []byte
	switch {
	case args.Body != "":
		body, err = os.ReadFile(args.Body)
	case args.Method == "GET" || args.Method == "DELETE":
	default:
		body, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read body: %v\n", err)
		os.Exit(1)
	}

	// Generate nonce
	nonceBytes := make([]byte, 12)
	rand.Read(nonceBytes)
	nonce := hex.EncodeToString(nonceBytes)

	timestamp := time.Now().UnixMilli()

	bodyHashBytes := sha256.Sum256(body)
	bodyHash := hex.EncodeToString(bodyHashBytes[:])

	signedData := crypto.SignaturePayload(args.Method, args.Path, bodyHash, nonce, timestamp)
	signature := ed25519.Sign(privKey, signedData)

	// Output headers
	fmt.Printf("X-Messenger-Signer: %s\n", base58.Encode(privKey.Public().(ed25519.PublicKey)))
	fmt.Printf("X-Messenger-Nonce: %s\n", nonce)
	fmt.Printf("X-Messenger-Timestamp: %d\n", timestamp)
	fmt.Printf("X-Messenger-Signature: %s\n", base64.StdEncoding.EncodeToString(signature))
}
