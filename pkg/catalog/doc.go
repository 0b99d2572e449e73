// Package catalog covers the provider directory and a provider's own
// service list.
//
// Directory loads GET /auth/providers/ and searches it by full name or
// business name. Manager lets a provider create, enable, disable and delete
// services; every successful change fetches the list again.
package catalog
