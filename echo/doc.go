// Package echo implements a concurrent TCP echo service.
//
// A Listener yields inbound connections, a Supervisor dispatches each one to
// its own task in a scope running the Supervisor policy, and a Handler
// relays every byte a peer sends back to the same peer, in order, until the
// peer half-closes or an I/O error ends the connection.
package echo
