// Package webui serves the browser chat pages.
//
// # Overview
//
// Each agent category has one page: / (general), /sports and /finance. Every
// page load opens a new view, which owns a conversation.Controller for that
// category. The view id and a single-use form token travel in hidden form
// fields; the token guard makes browser resubmits re-render instead of
// sending the message again.
//
// # Routes
//
//	GET  /                  general page
//	GET  /sports            sports page
//	GET  /finance           finance page
//	POST /{category}/send   submit a message
//	POST /{category}/clear  clear the conversation
//	POST /{category}/retry  retry a failed summary load
//	GET  /static/...        embedded stylesheet
//
// Posts for unknown or expired views redirect (303) to the category page.
// A submission while a reply is pending is answered with 409.
//
// # Rendering
//
// Reply summaries are markdown rendered with goldmark; raw HTML in a summary
// is dropped. The first three explore-more sources are shown and the rest
// are collapsed behind a "Show N More Sources" disclosure.
package webui
