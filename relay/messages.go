package relay

const WelcomeText = "Hi!\nI'm a relay bot for the OpenAI chat API.\nHow may I assist you?"

const HelpText = `Hi there! I'm a relay bot for the OpenAI chat API. Use the commands below to get started:
/start - to start the conversation
/clear - to clear the previous conversation and context.
/help - to display the help menu.
Anything else you send is forwarded to the model, together with its last reply.`

const DefaultErrorNotice = "Sorry, I couldn't get a reply right now. Please try again."
