package contracts

import "github.com/julienschmidt/httprouter"

// Handler is anything that can mount routes on the shared router.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}
