/*
Package health probes the booking backend.

Two checkers are provided. HTTPChecker requests a URL and accepts a status
range (200-399 by default); NewBackendChecker points it at the public
/services/ listing under the API base URL. TCPChecker only checks that the
backend's host:port accepts connections, which separates "nothing
listening" from "listening but failing".

	api, _ := health.NewBackendChecker(cfg.APIURL)
	addr, _ := health.BackendAddress(cfg.APIURL)
	for _, r := range health.Run(ctx, health.NewTCPChecker(addr), api) {
		fmt.Println(r.Healthy, r.Message)
	}

Watch repeats a check on an interval and keeps a Status. The backend is
reported down only after Config.Retries consecutive failures, so a single
dropped request does not flap the result.
*/
package health
