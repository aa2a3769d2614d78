// Package database owns the MongoDB client for the lifetime of the process.
//
// The Connector connects once at startup and keeps pinging the deployment in the background until it answers.
// Until then Ready reports false, and the web server answers API requests with 503 instead of letting them
// race the connection.
package database
