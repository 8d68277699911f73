// Package google handles authorization against Google APIs for apkship.
//
// On first use the Credential Bundle (an OAuth client descriptor) is
// downloaded, the user completes consent in the browser through a loopback
// redirect, and the resulting refresh token is saved as an "authorized_user"
// record. Later runs build an authorized HTTP client from that record with no
// interaction. Deleting the record forces consent again.
package google
