package tokenstorage

import "sync"

// Registry of issued session tokens. A token disappears on logout, so a
// stolen-but-logged-out cookie stops working even before it expires.

var (
	mu     sync.Mutex
	tokens = make(map[string]struct{})
)

func AddToken(tokenArg string) {
	mu.Lock()
	defer mu.Unlock()
	tokens[tokenArg] = struct{}{}
}

func CheckToken(tokenArg string) bool {
	mu.Lock()
	defer mu.Unlock()
	_, ok := tokens[tokenArg]
	return ok
}

func RemoveToken(tokenArg string) {
	mu.Lock()
	defer mu.Unlock()
	delete(tokens, tokenArg)
}
