package handlers

import (
	"fmt"
	"net/http"
)

type ScriptResponse struct {
	Script string `json:"script"`
}

const luaTemplate = `-- Evade Key System Client
local API_URL = "%s"
local HttpService = game:GetService("HttpService")
local Players = game:GetService("Players")
local LocalPlayer = Players.LocalPlayer

-- Most executors provide gethwid(); fall back to the user id
local function getHWID()
    if gethwid then return gethwid() end
    return tostring(LocalPlayer.UserId)
end

local function validateKey(keyInput)
    local hwid = getHWID()

    local success, response = pcall(function()
        return HttpService:PostAsync(
            API_URL .. "/api/validate",
            HttpService:JSONEncode({
                key = keyInput,
                hwid = hwid
            }),
            Enum.HttpContentType.ApplicationJson
        )
    end)

    if success then
        local data = HttpService:JSONDecode(response)
        if data.valid then
            print("Key validated!")
            return true
        else
            warn("Validation failed: " .. (data.message or "Unknown error"))
            return false
        end
    else
        warn("Connection failed: " .. tostring(response))
        return false
    end
end

-- Example usage:
-- local userKey = "YOUR_KEY_HERE"
-- if validateKey(userKey) then
--     print("Script loading...")
-- end

return validateKey
`

// LuaScript returns the client template pointed at this server. Purely
// generative; no state is read or written.
func (s *Server) LuaScript(w http.ResponseWriter, r *http.Request) {
	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		proto = "https"
	}
	apiURL := fmt.Sprintf("%s://%s", proto, r.Host)

	writeJSON(w, http.StatusOK, ScriptResponse{
		Script: fmt.Sprintf(luaTemplate, apiURL),
	})
}
