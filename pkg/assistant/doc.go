// Package assistant is the chat with the doctor-finding assistant
// (POST /chatbot/chat/). The backend matches keywords to a specialization
// and replies with matching providers.
package assistant
