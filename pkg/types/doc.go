/*
Package types defines the data structures shared by every carebook package.

The types mirror the JSON documents exchanged with the booking backend: users
and their provider profiles, bearer token pairs, provider services, and
appointments with their nested service, client and provider details. Field
tags follow the backend's snake_case wire format so values can be decoded
directly from API responses.

# Core Types

Identity:
  - User: account record with a closed Role (CLIENT, PROVIDER, ADMIN)
  - ProviderProfile: business name, verification flag and bio
  - Tokens: access/refresh bearer pair issued at login

Catalog:
  - Service: provider-owned offering with duration and decimal price
  - ServiceInput / ServicePatch: create and partial-update payloads

Appointments:
  - Appointment: booking record with date, time slot and status
  - AppointmentStatus: PENDING, CONFIRMED, COMPLETED, CANCELLED, REJECTED
  - NewAppointment: booking request {service, date, time_slot}

The legal transitions between appointment statuses live in the appointments
package; this package only names the states.

Prices use shopspring/decimal so amounts such as "49.99" survive a round trip
through the API without binary floating point error.
*/
package types
