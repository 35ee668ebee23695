/*
Package relay mediates between pages, the login session and the generation
proxy.

A trigger names a field in a tab and frame. The Coordinator asks that page to
gather the field's context, forwards the context to the proxy with the
session's bearer token, and sends exactly one outcome back to the page that
reported it:

	trigger -> gatherFieldContext -> sendFieldContext -> LLM_RESPONSE | LLM_ERROR | AUTH_REQUIRED

Pages are reached through a PageTransport. Hub carries messages over
websockets; Bus delivers them in-process. Page is the page-side agent: it
answers gather requests from an extractor.Document and applies generated
text to the field it last gathered.

# Pending slot

The Coordinator remembers only the most recent trigger. A second trigger
before the first resolves overwrites the slot; nothing is queued and the
superseded proxy call runs to completion.
*/
package relay
