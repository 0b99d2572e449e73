/*
Package client provides a typed Go client for the booking backend.

Each method maps to one REST endpoint and returns carebook types. Transport,
authentication and token refresh are handled by the gateway the client is
built on, so callers only see typed results and wrapped errors:

	gw, err := gateway.New(cfg.APIURL, store)
	if err != nil {
		return err
	}
	c := client.NewClient(gw)

	appointments, err := c.Appointments(ctx)
	if err != nil {
		fmt.Println("Error:", gateway.Detail(err))
	}

Errors keep the gateway error in their chain, so errors.Is(err,
gateway.ErrSessionExpired) and errors.As(err, &apiErr) work on any result.

# Endpoints

	Login                    POST   /auth/login/
	Register                 POST   /auth/register/
	Me                       GET    /auth/me/
	Providers                GET    /auth/providers/
	Services                 GET    /services/[?provider=<id>]
	CreateService            POST   /services/
	UpdateService            PATCH  /services/<id>/
	DeleteService            DELETE /services/<id>/
	Appointments             GET    /appointments/
	CreateAppointment        POST   /appointments/
	UpdateAppointmentStatus  PATCH  /appointments/<id>/
	Chat                     POST   /chatbot/chat/

The token refresh endpoint is used by the gateway alone and has no method
here.
*/
package client
