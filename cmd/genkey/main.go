package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/eldtechnologies/messenger/clients/go/messenger"
)

func main() {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(err)
	}
	encKey, err := messenger.EncryptionKey(pub)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Identity (base58):       %s\n", base58.Encode(pub))
	fmt.Printf("Encryption key (base58): %s\n", base58.Encode(encKey))
	fmt.Printf("Private key (base64):    %s\n", base64.StdEncoding.EncodeToString(priv))
}
