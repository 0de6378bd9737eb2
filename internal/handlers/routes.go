package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Router wires the portal endpoints.
func Router(auth *AuthHandler, dashboard *DashboardHandler, recharge *RechargeHandler, co *CheckoutHandler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/", auth.Index).Methods("GET", "HEAD")
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "HEAD")

	router.HandleFunc("/api/login", auth.Login).Methods("POST")
	router.HandleFunc("/api/logout", auth.Logout).Methods("POST")
	router.HandleFunc("/api/dashboard", dashboard.HostelContact).Methods("GET")

	router.HandleFunc("/api/recharge", recharge.Status).Methods("GET")
	router.HandleFunc("/api/recharge", recharge.Submit).Methods("POST")
	router.HandleFunc("/api/recharge/open", recharge.Open).Methods("POST")
	router.HandleFunc("/api/recharge/reset", recharge.Reset).Methods("POST")
	router.HandleFunc("/api/recharge/callback", co.Callback).Methods("POST")

	router.HandleFunc("/assets/checkout.js", co.Script).Methods("GET")
	return router
}
