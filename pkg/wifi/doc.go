// Package wifi defines the Wi-Fi side of provisioning: scanned access points,
// credentials, security codes and join results, plus the Provisioner that
// turns a CONNECT_AP into an asynchronous join.
//
// Backends live in sub-packages: sim for a configurable simulated radio and
// nm for NetworkManager over D-Bus.
package wifi
