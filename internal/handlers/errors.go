package handlers

import "errors"

var (
	errChainNotConfigured = errors.New("chain rpc not configured")
	errMintNotConfigured  = errors.New("minting not configured")
)
