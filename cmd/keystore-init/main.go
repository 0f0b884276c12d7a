// keystore-init 把 WALLET_PRIVATE_KEY 环境变量写入本地加密 keystore（Badger），
// 之后 bot 可以通过 wallet.keystore_path 读取，不再需要明文环境变量。
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/liqbot/gomm/pkg/secretstore"
)

func main() {
	storePath := flag.String("path", "data/keystore", "keystore 目录")
	flag.Parse()

	_ = godotenv.Load()

	privateKey := os.Getenv("WALLET_PRIVATE_KEY")
	if privateKey == "" {
		fmt.Fprintln(os.Stderr, "WALLET_PRIVATE_KEY 未设置")
		os.Exit(1)
	}

	encKey, err := secretstore.ParseKey(os.Getenv("SECRETSTORE_KEY"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "解析 SECRETSTORE_KEY 失败: %v\n", err)
		os.Exit(1)
	}
	if encKey == nil {
		fmt.Fprintln(os.Stderr, "警告: SECRETSTORE_KEY 未设置，keystore 将不加密")
	}

	store, err := secretstore.Open(secretstore.OpenOptions{
		Path:          *storePath,
		EncryptionKey: encKey,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "打开 keystore 失败: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.SetString(secretstore.KeyWalletPrivateKey, privateKey); err != nil {
		fmt.Fprintf(os.Stderr, "写入 keystore 失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("私钥已写入 %s\n", *storePath)
}
