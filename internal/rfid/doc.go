// Package rfid stores RFID tags and applies the door access policy.
//
// Unknown tags are auto-registered as untrusted on first scan and denied;
// every presentation increments the tag's usage counter regardless of the
// outcome. Tags become trusted by assignment to a user or an explicit
// permission grant.
package rfid
