// Package storage persists the running transfer checksum.
//
// KV is the narrow record store contract: records live in numbered groups
// and are addressed by a 32-bit key. BadgerKV implements it over a badger
// database. ChecksumStore encodes a CRC-32 value as a protobuf UInt32Value
// and keys it either under the single shared record (group 0xB, key 1) or
// per file id (group 0xC).
//
//	db, _ := badger.Open(badger.DefaultOptions(dir))
//	store := storage.NewChecksumStore(storage.NewBadgerKV(db), storage.KeyModeShared)
//	_ = store.Save(fileID, crc)
package storage
