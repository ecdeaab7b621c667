package completion

import "fmt"

// Powershell generates PowerShell completion script
func Powershell() {
	script := `# PowerShell completion for freight

Register-ArgumentCompleter -Native -CommandName freight -ScriptBlock {
    param($commandName, $wordToComplete, $commandAst, $fakeBoundParameters)

    $commands = @(
        [System.Management.Automation.CompletionResult]::new('serve', 'serve', [System.Management.Automation.CompletionResultType]::ParameterValue, 'Receive uploads')
        [System.Management.Automation.CompletionResult]::new('send', 'send', [System.Management.Automation.CompletionResultType]::ParameterValue, 'Upload a file')
        [System.Management.Automation.CompletionResult]::new('status', 'status', [System.Management.Automation.CompletionResultType]::ParameterValue, 'Session progress')
        [System.Management.Automation.CompletionResult]::new('cancel', 'cancel', [System.Management.Automation.CompletionResultType]::ParameterValue, 'Abort a session')
        [System.Management.Automation.CompletionResult]::new('sessions', 'sessions', [System.Management.Automation.CompletionResultType]::ParameterValue, 'List sessions')
        [System.Management.Automation.CompletionResult]::new('config', 'config', [System.Management.Automation.CompletionResultType]::ParameterValue, 'Manage config')
        [System.Management.Automation.CompletionResult]::new('completion', 'completion', [System.Management.Automation.CompletionResultType]::ParameterValue, 'Generate completion')
    )

    $commands | Where-Object { $_.CompletionText -like "$wordToComplete*" }
}
`
	fmt.Print(script)
}
