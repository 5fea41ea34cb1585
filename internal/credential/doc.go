// Package credential stores the single GitHub bearer credential used by
// pagecms.
//
// There is at most one live credential. It is created by a successful
// device flow or by manual entry, replaced wholesale, and destroyed on
// logout. Consumers depend on the Store interface; FileStore persists the
// value under ~/.config/pagecms/github_token.json and MemoryStore keeps it
// for the lifetime of the process.
package credential
